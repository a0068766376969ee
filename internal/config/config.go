package config

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// WM identifies the window manager a config section applies to.
type WM string

const (
	WMI3    WM = "i3"
	WMBspwm WM = "bspwm"
)

// ErrUnknownWM is returned for window managers without a backend.
var ErrUnknownWM = errors.New("unsupported window manager")

// ParseWM maps a window manager name (as advertised in _NET_WM_NAME) to a WM.
func ParseWM(name string) (WM, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(WMI3):
		return WMI3, nil
	case string(WMBspwm):
		return WMBspwm, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWM, name)
	}
}

// InfoType is a window property that can produce the display label.
type InfoType string

const (
	InfoWmInstance       InfoType = "WM_INSTANCE"
	InfoWmClass          InfoType = "WM_CLASS"
	InfoWmName           InfoType = "WM_NAME"
	InfoNetWmName        InfoType = "_NET_WM_NAME"
	InfoNetWmVisibleName InfoType = "_NET_WM_VISIBLE_NAME"
)

// Valid reports whether t names a supported property.
func (t InfoType) Valid() bool {
	switch t {
	case InfoWmInstance, InfoWmClass, InfoWmName, InfoNetWmName, InfoNetWmVisibleName:
		return true
	}
	return false
}

// IconSelection picks one image out of the sizes a window advertises.
type IconSelection string

const (
	IconSelectLargest IconSelection = "largest" // Widest image, last one wins ties.
	IconSelectFirst   IconSelection = "first"   // First complete image.
	IconSelectClosest IconSelection = "closest" // Width closest to the overlay size.
)

// DefaultEmptyLabel is printed when the focused desktop has no windows.
const DefaultEmptyLabel = "Empty"

const (
	DefaultSize  = 24
	DefaultColor = "#000000"
	maxSize      = 4096
)

// PrintInfo configures how the focused window is turned into a label.
type PrintInfo struct {
	// Types lists the properties to probe, first non-empty wins.
	Types []InfoType `toml:"types" yaml:"types"`
	// MaxLen truncates labels to this many characters (0 = unlimited).
	MaxLen int `toml:"max_len,omitempty" yaml:"max_len,omitempty"`
	// CapitalizeFirst lists the property types whose value gets an upper-case first letter.
	CapitalizeFirst []InfoType `toml:"capitalize_first,omitempty" yaml:"capitalize_first,omitempty"`
	// SubstituteRules maps a property type to exact-match replacements.
	SubstituteRules map[string]map[string]string `toml:"substitute_rules,omitempty" yaml:"substitute_rules,omitempty"`
	// LabelEmpty replaces the empty-desktop label. nil keeps DefaultEmptyLabel.
	LabelEmpty *string `toml:"label_empty,omitempty" yaml:"label_empty,omitempty"`
}

// Section holds the settings for one window manager.
type Section struct {
	Gap      string `toml:"gap" yaml:"gap"`
	X        int    `toml:"x" yaml:"x"`
	Y        int    `toml:"y" yaml:"y"`
	Size     int    `toml:"size" yaml:"size"`
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`
	Color    string `toml:"color" yaml:"color"`
	// GapPerDesk shifts the icon right by this many pixels per desktop (i3 only).
	GapPerDesk    float64       `toml:"gap_per_desk,omitempty" yaml:"gap_per_desk,omitempty"`
	IconSelection IconSelection `toml:"icon_selection,omitempty" yaml:"icon_selection,omitempty"`
	PrintInfo     PrintInfo     `toml:"print_info" yaml:"print_info"`
}

// LogConfig configures diagnostic logging on stderr.
type LogConfig struct {
	Level string `toml:"level,omitempty" yaml:"level,omitempty"`
}

// File mirrors the on-disk layout: one table per window manager.
type File struct {
	I3    *Section  `toml:"i3,omitempty" yaml:"i3,omitempty"`
	Bspwm *Section  `toml:"bspwm,omitempty" yaml:"bspwm,omitempty"`
	Log   LogConfig `toml:"log,omitempty" yaml:"log,omitempty"`

	// defined holds every dotted key present in the document.
	defined map[string]bool
}

// Section returns the table for wm, or nil when the file has none.
func (f *File) Section(wm WM) *Section {
	switch wm {
	case WMI3:
		return f.I3
	case WMBspwm:
		return f.Bspwm
	}
	return nil
}

// Config is the effective configuration handed to the engine.
type Config struct {
	Section
	WM   WM
	Log  LogConfig
	Path string

	// defined holds the keys set in the file, relative to the WM table
	// except for log.* keys.
	defined map[string]bool
}

// DefaultSection returns a section with every optional field filled in.
func DefaultSection() Section {
	return Section{
		Size:          DefaultSize,
		Color:         DefaultColor,
		IconSelection: IconSelectLargest,
		PrintInfo: PrintInfo{
			Types: []InfoType{InfoWmClass},
		},
	}
}

// applyDefaults fills zero-valued optional fields.
func (s *Section) applyDefaults(defaultCacheDir string) {
	def := DefaultSection()
	if s.Size == 0 {
		s.Size = def.Size
	}
	if s.Color == "" {
		s.Color = def.Color
	}
	if s.IconSelection == "" {
		s.IconSelection = def.IconSelection
	}
	if len(s.PrintInfo.Types) == 0 {
		s.PrintInfo.Types = def.PrintInfo.Types
	}
	if s.CacheDir == "" {
		s.CacheDir = defaultCacheDir
	}
}

// Validate checks the effective configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if _, err := ParseWM(string(c.WM)); err != nil {
		return err
	}

	prefix := string(c.WM)
	if c.X < math.MinInt16 || c.X > math.MaxInt16 {
		return fmt.Errorf("%s.x: %d out of range", prefix, c.X)
	}
	if c.Y < math.MinInt16 || c.Y > math.MaxInt16 {
		return fmt.Errorf("%s.y: %d out of range", prefix, c.Y)
	}
	if c.Size <= 0 || c.Size > maxSize {
		return fmt.Errorf("%s.size: must be between 1 and %d, got %d", prefix, maxSize, c.Size)
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		return fmt.Errorf("%s.cache_dir: must not be empty", prefix)
	}
	if _, err := ParseColor(c.Color); err != nil {
		return fmt.Errorf("%s.color: %w", prefix, err)
	}
	if c.GapPerDesk != 0 && c.WM != WMI3 {
		return fmt.Errorf("%s.gap_per_desk: only supported for i3", prefix)
	}
	switch c.IconSelection {
	case IconSelectLargest, IconSelectFirst, IconSelectClosest:
	default:
		return fmt.Errorf("%s.icon_selection: unknown value %q", prefix, c.IconSelection)
	}

	pi := c.PrintInfo
	if len(pi.Types) == 0 {
		return fmt.Errorf("%s.print_info.types: must list at least one property", prefix)
	}
	for _, t := range pi.Types {
		if !t.Valid() {
			return fmt.Errorf("%s.print_info.types: unknown property %q", prefix, t)
		}
	}
	for _, t := range pi.CapitalizeFirst {
		if !t.Valid() {
			return fmt.Errorf("%s.print_info.capitalize_first: unknown property %q", prefix, t)
		}
	}
	for key := range pi.SubstituteRules {
		if !InfoType(key).Valid() {
			return fmt.Errorf("%s.print_info.substitute_rules: unknown property %q", prefix, key)
		}
	}
	if pi.MaxLen < 0 {
		return fmt.Errorf("%s.print_info.max_len: must be >= 0, got %d", prefix, pi.MaxLen)
	}
	return nil
}

// IconX returns the overlay x offset for the given desktop count.
func (s *Section) IconX(desktops uint32) int {
	return s.X + int(s.GapPerDesk*float64(desktops))
}

// Background parses Color into an opaque RGBA value.
func (s *Section) Background() color.RGBA {
	bg, err := ParseColor(s.Color)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return bg
}

// ParseColor parses a #rrggbb color.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("expected #rrggbb, got %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("expected #rrggbb, got %q", s)
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}
