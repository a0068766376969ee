package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ixwindow/ixwindow/internal/runtimepath"
)

// ErrMissingSection is returned when the file has no table for the active WM.
var ErrMissingSection = errors.New("config has no section for window manager")

// DefaultConfigPath resolves the config file location from the environment.
func DefaultConfigPath() (string, error) {
	return runtimepath.ConfigPath()
}

// Load reads path, selects the table for wm, applies defaults and validates.
func Load(path string, wm WM) (*Config, error) {
	canon, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	file, err := LoadFile(canon)
	if err != nil {
		return nil, err
	}

	section := file.Section(wm)
	if section == nil {
		return nil, fmt.Errorf("%s: %w %q", canon, ErrMissingSection, wm)
	}

	defaultCacheDir, err := runtimepath.CacheDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Section: *section,
		WM:      wm,
		Log:     file.Log,
		Path:    canon,
		defined: file.definedFor(wm),
	}
	cfg.applyDefaults(defaultCacheDir)
	cfg.CacheDir = runtimepath.ExpandPath(cfg.CacheDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", canon, err)
	}
	return cfg, nil
}

// LoadFile decodes a config file without selecting a section. The format is
// picked from the extension: .yaml/.yml for YAML, anything else is TOML.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	var (
		file File
		keys []string
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if keys, err = decodeStrictYAML(data, &file); err != nil {
			return nil, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
		}
	default:
		if keys, err = decodeStrictTOML(data, &file); err != nil {
			return nil, fmt.Errorf("%s: failed to parse toml: %w", path, err)
		}
	}

	file.defined = make(map[string]bool, len(keys))
	for _, k := range keys {
		file.defined[k] = true
	}
	return &file, nil
}

// Encode writes cfg back out as a TOML document with a single WM table.
func Encode(w io.Writer, cfg *Config) error {
	doc := map[string]any{
		string(cfg.WM): cfg.Section,
	}
	if cfg.Log.Level != "" {
		doc["log"] = cfg.Log
	}
	return toml.NewEncoder(w).Encode(doc)
}

// decodeStrictTOML decodes data into out and returns every dotted key the
// document defines.
func decodeStrictTOML(data []byte, out any) ([]string, error) {
	md, err := toml.Decode(string(data), out)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	defined := make([]string, 0, len(md.Keys()))
	for _, key := range md.Keys() {
		defined = append(defined, strings.Join(key, "."))
	}
	return defined, nil
}

// decodeStrictYAML is decodeStrictTOML for YAML documents.
func decodeStrictYAML(data []byte, out any) ([]string, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	var defined []string
	collectYAMLKeys(&root, "", &defined)
	return defined, nil
}

func collectYAMLKeys(n *yaml.Node, prefix string, out *[]string) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			collectYAMLKeys(c, prefix, out)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			*out = append(*out, key)
			collectYAMLKeys(n.Content[i+1], key, out)
		}
	}
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(runtimepath.ExpandPath(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Best-effort; still use abs.
		return abs, nil
	}
	return real, nil
}
