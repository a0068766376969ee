package config

import "testing"

func TestPrintInfoFormat(t *testing.T) {
	empty := ""
	pi := PrintInfo{
		MaxLen:          8,
		CapitalizeFirst: []InfoType{InfoWmClass},
		SubstituteRules: map[string]map[string]string{
			"WM_CLASS": {"Org.gnome.Nautilus": "Files"},
			"WM_NAME":  {"vim": "editor"},
		},
	}

	tests := []struct {
		name string
		info string
		typ  InfoType
		want string
	}{
		{"capitalized", "firefox", InfoWmClass, "Firefox"},
		{"not capitalized for other type", "firefox", InfoWmName, "firefox"},
		{"substituted after capitalization", "org.gnome.Nautilus", InfoWmClass, "Files"},
		{"substitution is exact match", "vim2", InfoWmName, "vim2"},
		{"substitution for name", "vim", InfoWmName, "editor"},
		{"truncated by characters", "äbcdefghij", InfoWmName, "äbcdefgh"},
		{"empty stays empty", "", InfoWmClass, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := pi.Format(tc.info, tc.typ); got != tc.want {
				t.Fatalf("Format(%q, %s) = %q, want %q", tc.info, tc.typ, got, tc.want)
			}
		})
	}

	pi.LabelEmpty = &empty
	if got := pi.EmptyLabel(); got != "" {
		t.Fatalf("EmptyLabel() = %q, want empty", got)
	}
}

func TestConfigLines(t *testing.T) {
	cfg := &Config{Section: DefaultSection()}
	cfg.Gap = "  "
	cfg.PrintInfo.MaxLen = 3

	if got := cfg.WindowLine("kitty", InfoWmClass); got != "  kit" {
		t.Fatalf("WindowLine = %q, want %q", got, "  kit")
	}
	if got := cfg.EmptyLine(); got != "  Emp" {
		t.Fatalf("EmptyLine = %q, want %q", got, "  Emp")
	}
}
