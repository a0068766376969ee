package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExplain(t *testing.T) {
	path := writeConfig(t, "ixwindow.toml", sampleTOML)
	cfg, err := Load(path, WMI3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	tests := []struct {
		path   string
		want   any
		source SourceKind
	}{
		{"x", 270, SourceFile},
		{"color", "#252737", SourceFile},
		{"icon_selection", IconSelectLargest, SourceDefault},
		{"print_info.max_len", 20, SourceFile},
		{"print_info.label_empty", "Desktop", SourceFile},
		{"print_info.substitute_rules.WM_CLASS", map[string]string{"Org.gnome.Nautilus": "Files"}, SourceFile},
		{"log.level", "debug", SourceFile},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, src, err := cfg.Explain(tc.path)
			if err != nil {
				t.Fatalf("Explain(%q): %v", tc.path, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("value mismatch (-want +got):\n%s", diff)
			}
			if src.Kind != tc.source {
				t.Fatalf("source = %s, want %s", src.Kind, tc.source)
			}
		})
	}
}

func TestExplainYAMLSources(t *testing.T) {
	data := strings.Join([]string{
		"bspwm:",
		"  x: 5",
		"  cache_dir: /tmp/icons",
		"  print_info:",
		"    max_len: 12",
		"",
	}, "\n")
	cfg, err := Load(writeConfig(t, "ixwindow.yml", data), WMBspwm)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, src, _ := cfg.Explain("print_info.max_len"); src.Kind != SourceFile || src.File != cfg.Path {
		t.Fatalf("max_len source = %+v, want file %s", src, cfg.Path)
	}
	if v, src, _ := cfg.Explain("size"); src.Kind != SourceDefault || v != DefaultSize {
		t.Fatalf("size = %v from %s, want default %d", v, src, DefaultSize)
	}
}

func TestExplainUnknownPath(t *testing.T) {
	cfg := &Config{Section: DefaultSection(), WM: WMBspwm}

	for _, path := range []string{"", "hotkey", "print_info", "print_info.types.extra", "print_info.substitute_rules.WM_NAME"} {
		if _, _, err := cfg.Explain(path); err == nil {
			t.Fatalf("Explain(%q) should fail", path)
		}
	}
}
