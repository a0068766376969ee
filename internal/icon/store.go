package icon

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ixwindow/ixwindow/internal/config"
)

// Ext is the extension of every cached icon file.
const Ext = ".jpg"

const jpegQuality = 95

// ErrNoIconFound is returned when a window advertises no usable icon data.
var ErrNoIconFound = errors.New("no icon found")

// Source reads the raw _NET_WM_ICON property of a window.
type Source interface {
	IconData(windowID uint32) ([]byte, error)
}

// Options controls where icons are cached and how they are produced.
type Options struct {
	Dir        string
	Background color.RGBA
	Selection  config.IconSelection
	Size       int
}

// OptionsFromConfig extracts the icon settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:        cfg.CacheDir,
		Background: cfg.Background(),
		Selection:  cfg.IconSelection,
		Size:       cfg.Size,
	}
}

// Store caches one JPEG per identity under a directory. It is safe for use
// from the engine loop and from background extraction goroutines.
type Store struct {
	src Source

	mu   sync.RWMutex
	opts Options
}

// NewStore creates a store reading icon data from src.
func NewStore(src Source, opts Options) *Store {
	return &Store{src: src, opts: opts}
}

// Reconfigure applies settings from a reloaded config. Files already cached
// are kept; a new background color only affects icons generated afterwards.
func (s *Store) Reconfigure(cfg *config.Config) {
	s.mu.Lock()
	s.opts = OptionsFromConfig(cfg)
	s.mu.Unlock()
}

func (s *Store) options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Path returns the cache file for identity.
func (s *Store) Path(identity string) string {
	return filepath.Join(s.options().Dir, identity+Ext)
}

// Lookup reports the cache file for identity if it already exists.
func (s *Store) Lookup(identity string) (string, bool) {
	if identity == "" {
		return "", false
	}
	path := s.Path(identity)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Ensure returns the cached icon for identity, generating it from the
// window's icon property when missing.
func (s *Store) Ensure(windowID uint32, identity string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("window %#x: empty identity", windowID)
	}
	if path, ok := s.Lookup(identity); ok {
		return path, nil
	}

	data, err := s.src.IconData(windowID)
	if err != nil {
		return "", err
	}

	opts := s.options()
	raw, ok := Select(Parse(data), opts.Selection, opts.Size)
	if !ok {
		return "", fmt.Errorf("window %#x: %w", windowID, ErrNoIconFound)
	}

	path := filepath.Join(opts.Dir, identity+Ext)
	if err := writeJPEG(path, Composite(raw, opts.Background)); err != nil {
		return "", err
	}
	return path, nil
}

// List returns the cached icon files sorted by name.
func (s *Store) List() ([]string, error) {
	dir := s.options().Dir
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Clear deletes every cached icon and returns how many were removed.
func (s *Store) Clear() (int, error) {
	files, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("remove %s: %w", f, err)
		}
		removed++
	}
	return removed, nil
}

// writeJPEG writes through a temp file so Lookup never sees a partial icon.
func writeJPEG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".icon-*")
	if err != nil {
		return fmt.Errorf("create temp icon: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		tmp.Close()
		return fmt.Errorf("encode icon: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write icon: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save icon: %w", err)
	}
	return nil
}
