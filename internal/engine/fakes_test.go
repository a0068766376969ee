package engine

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ixwindow/ixwindow/internal/config"
	"github.com/ixwindow/ixwindow/internal/icon"
	"github.com/ixwindow/ixwindow/internal/x11"
)

type fakeWindow struct {
	name       string
	identity   string
	fullscreen bool
	// namePolls is how many DisplayName calls return "" before name shows up.
	namePolls int
}

type fakeWindows struct {
	mu      sync.Mutex
	windows map[uint32]*fakeWindow
}

func newFakeWindows() *fakeWindows {
	return &fakeWindows{windows: map[uint32]*fakeWindow{}}
}

func (f *fakeWindows) add(id uint32, w *fakeWindow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[id] = w
}

func (f *fakeWindows) setName(id uint32, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[id].name = name
}

func (f *fakeWindows) setFullscreen(id uint32, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows[id].fullscreen = on
}

func (f *fakeWindows) remove(id uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, id)
}

func (f *fakeWindows) DisplayName(id uint32, _ []config.InfoType) (string, config.InfoType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return "", "", x11.ErrWindowGone
	}
	if w.namePolls > 0 {
		w.namePolls--
		return "", "", nil
	}
	return w.name, config.InfoWmClass, nil
}

func (f *fakeWindows) Identity(id uint32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return "", x11.ErrWindowGone
	}
	return w.identity, nil
}

func (f *fakeWindows) IsFullscreen(id uint32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return false, x11.ErrWindowGone
	}
	return w.fullscreen, nil
}

type fakeBackend struct {
	mu         sync.Mutex
	focused    uint32
	desktop    string
	fullscreen map[string]uint32
	count      uint32
}

func (f *fakeBackend) FocusedWindow() (uint32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.focused, f.focused != 0, nil
}

func (f *fakeBackend) FocusedDesktop() (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.desktop, f.desktop != "", nil
}

func (f *fakeBackend) FullscreenWindow(desktop string) (uint32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.fullscreen[desktop]
	return id, id != 0, nil
}

func (f *fakeBackend) IsDesktopEmpty(string) (bool, error) {
	return false, nil
}

func (f *fakeBackend) DesktopCount() (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, nil
}

func (f *fakeBackend) setFullscreen(desktop string, id uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fullscreen == nil {
		f.fullscreen = map[string]uint32{}
	}
	f.fullscreen[desktop] = id
}

// fakeIcons generates icons on demand. An identity listed in gates blocks
// in Ensure until its channel is closed.
type fakeIcons struct {
	mu       sync.Mutex
	cached   map[string]bool
	noIcon   map[string]bool
	panics   map[string]bool
	gates    map[string]chan struct{}
	ensured  []string
	reloaded int
}

func newFakeIcons() *fakeIcons {
	return &fakeIcons{
		cached: map[string]bool{},
		noIcon: map[string]bool{},
		panics: map[string]bool{},
		gates:  map[string]chan struct{}{},
	}
}

func iconPath(identity string) string {
	return "/cache/" + identity + icon.Ext
}

func (f *fakeIcons) Lookup(identity string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached[identity] {
		return iconPath(identity), true
	}
	return "", false
}

func (f *fakeIcons) Ensure(_ uint32, identity string) (string, error) {
	f.mu.Lock()
	gate := f.gates[identity]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured = append(f.ensured, identity)
	if f.panics[identity] {
		panic("malformed icon data")
	}
	if f.noIcon[identity] {
		return "", icon.ErrNoIconFound
	}
	f.cached[identity] = true
	return iconPath(identity), nil
}

func (f *fakeIcons) Reconfigure(*config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloaded++
}

func (f *fakeIcons) gate(identity string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[identity] = ch
	return ch
}

func (f *fakeIcons) ensureCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ensured...)
}

type shown struct {
	Handle uint32
	Path   string
	X, Y   int
	Size   int
}

type fakeRenderer struct {
	mu        sync.Mutex
	next      uint32
	shows     []shown
	live      map[uint32]shown
	destroyed []uint32
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{next: 0x1000, live: map[uint32]shown{}}
}

func (f *fakeRenderer) Show(path string, x, y, size int, monitor string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if monitor == "" {
		return 0, fmt.Errorf("no monitor")
	}
	f.next++
	s := shown{Handle: f.next, Path: path, X: x, Y: y, Size: size}
	f.shows = append(f.shows, s)
	f.live[s.Handle] = s
	return s.Handle, nil
}

func (f *fakeRenderer) Destroy(handle uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, handle)
	f.destroyed = append(f.destroyed, handle)
	return nil
}

func (f *fakeRenderer) liveOverlays() []shown {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []shown
	for _, s := range f.live {
		out = append(out, s)
	}
	return out
}

func (f *fakeRenderer) showCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.shows)
}

// syncBuffer is an io.Writer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimRight(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

type harness struct {
	engine   *Engine
	windows  *fakeWindows
	backend  *fakeBackend
	icons    *fakeIcons
	renderer *fakeRenderer
	out      *syncBuffer
}

func testOptions() Options {
	return Options{
		NameTimeout:   50 * time.Millisecond,
		NameInterval:  5 * time.Millisecond,
		IconTimeout:   300 * time.Millisecond,
		IconInterval:  5 * time.Millisecond,
		WatchInterval: 5 * time.Millisecond,
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{Section: config.DefaultSection(), WM: config.WMBspwm}
	cfg.X, cfg.Y = 100, 4
	cfg.CacheDir = "/cache"
	return cfg
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	h := &harness{
		windows:  newFakeWindows(),
		backend:  &fakeBackend{desktop: "1", count: 2},
		icons:    newFakeIcons(),
		renderer: newFakeRenderer(),
		out:      &syncBuffer{},
	}
	h.engine = New(cfg, "eDP-1", Deps{
		Backend:  h.backend,
		Windows:  h.windows,
		Icons:    h.icons,
		Renderer: h.renderer,
		Out:      h.out,
	}, testOptions())
	t.Cleanup(h.engine.stopWatcher)
	return h
}

// awaitResult feeds the next background extraction result into the engine.
func (h *harness) awaitResult(t *testing.T) {
	t.Helper()
	select {
	case r := <-h.engine.results:
		h.engine.handleResult(r)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for icon extraction")
	}
}
