package config

import (
	"fmt"
	"strings"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

// Source tells where an effective value came from.
type Source struct {
	Kind SourceKind
	File string
}

func (s Source) String() string {
	if s.Kind == SourceFile {
		return fmt.Sprintf("file %s", s.File)
	}
	return string(s.Kind)
}

// definedFor returns the keys of the wm table relative to it, plus the
// log table keys as they are.
func (f *File) definedFor(wm WM) map[string]bool {
	prefix := string(wm) + "."
	out := make(map[string]bool)
	for key := range f.defined {
		switch {
		case strings.HasPrefix(key, prefix):
			out[strings.TrimPrefix(key, prefix)] = true
		case strings.HasPrefix(key, "log."):
			out[key] = true
		}
	}
	return out
}

// Explain returns the effective value at a dotted key path and its source.
//
// Supported paths:
//
//	gap, x, y, size, cache_dir, color, gap_per_desk, icon_selection
//	print_info.types
//	print_info.max_len
//	print_info.capitalize_first
//	print_info.label_empty
//	print_info.substitute_rules
//	print_info.substitute_rules.<TYPE>
//	log.level
func (c *Config) Explain(path string) (any, Source, error) {
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := c.lookupValue(path)
	if err != nil {
		return nil, Source{}, err
	}
	if c.defined[path] {
		return value, Source{Kind: SourceFile, File: c.Path}, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func (c *Config) lookupValue(path string) (any, error) {
	parts := strings.Split(path, ".")
	unknown := fmt.Errorf("unknown path: %s", path)

	if len(parts) == 1 {
		switch parts[0] {
		case "gap":
			return c.Gap, nil
		case "x":
			return c.X, nil
		case "y":
			return c.Y, nil
		case "size":
			return c.Size, nil
		case "cache_dir":
			return c.CacheDir, nil
		case "color":
			return c.Color, nil
		case "gap_per_desk":
			return c.GapPerDesk, nil
		case "icon_selection":
			return c.IconSelection, nil
		}
		return nil, unknown
	}

	switch parts[0] {
	case "log":
		if len(parts) == 2 && parts[1] == "level" {
			return c.Log.Level, nil
		}
	case "print_info":
		pi := c.PrintInfo
		switch parts[1] {
		case "types":
			if len(parts) == 2 {
				return pi.Types, nil
			}
		case "max_len":
			if len(parts) == 2 {
				return pi.MaxLen, nil
			}
		case "capitalize_first":
			if len(parts) == 2 {
				return pi.CapitalizeFirst, nil
			}
		case "label_empty":
			if len(parts) == 2 {
				return pi.EmptyLabel(), nil
			}
		case "substitute_rules":
			if len(parts) == 2 {
				return pi.SubstituteRules, nil
			}
			if len(parts) == 3 {
				rules, ok := pi.SubstituteRules[parts[2]]
				if !ok {
					return nil, fmt.Errorf("no substitute rules for %s", parts[2])
				}
				return rules, nil
			}
		}
	}
	return nil, unknown
}
