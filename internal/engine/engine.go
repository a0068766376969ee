// Package engine owns the focus state of one monitor. It turns canonical
// window manager events into label lines on stdout and keeps at most one
// icon overlay on screen for the focused application.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ixwindow/ixwindow/internal/config"
	"github.com/ixwindow/ixwindow/internal/logger"
	"github.com/ixwindow/ixwindow/internal/wm"
	"github.com/ixwindow/ixwindow/internal/x11"
)

// Windows reads window properties from the windowing system. Calls on a
// window that no longer exists return an error wrapping x11.ErrWindowGone.
type Windows interface {
	DisplayName(windowID uint32, types []config.InfoType) (string, config.InfoType, error)
	Identity(windowID uint32) (string, error)
	IsFullscreen(windowID uint32) (bool, error)
}

// IconStore caches icon files per identity.
type IconStore interface {
	Lookup(identity string) (string, bool)
	Ensure(windowID uint32, identity string) (string, error)
	Reconfigure(cfg *config.Config)
}

// Renderer shows and removes icon overlays.
type Renderer interface {
	Show(path string, x, y, size int, monitor string) (uint32, error)
	Destroy(handle uint32) error
}

// Options tunes the polling loops.
type Options struct {
	NameTimeout   time.Duration
	NameInterval  time.Duration
	IconTimeout   time.Duration
	IconInterval  time.Duration
	WatchInterval time.Duration
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		NameTimeout:   time.Second,
		NameInterval:  100 * time.Millisecond,
		IconTimeout:   3 * time.Second,
		IconInterval:  100 * time.Millisecond,
		WatchInterval: 100 * time.Millisecond,
	}
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Backend  wm.Backend
	Windows  Windows
	Icons    IconStore
	Renderer Renderer
	Out      io.Writer

	// Events and Reloads feed Serve. Reloads may be nil.
	Events  <-chan wm.Event
	Reloads <-chan *config.Config
}

// iconRecord tracks the overlay. Only the engine loop touches it.
type iconRecord struct {
	handle uint32
	shown  bool
	// visible is false while the focused desktop shows a fullscreen window.
	visible bool
	// missed is set when a rebuild was skipped because the icon was hidden.
	missed bool
}

// iconResult is sent back by a background extraction.
type iconResult struct {
	seq      uint64
	identity string
	path     string
	err      error
}

// Engine is the focus state machine. Its methods must be called from a
// single goroutine; Serve provides that loop.
type Engine struct {
	cfg     *config.Config
	monitor string
	opts    Options

	backend  wm.Backend
	windows  Windows
	icons    IconStore
	renderer Renderer
	printer  *Printer

	events  <-chan wm.Event
	reloads <-chan *config.Config

	state   State
	icon    iconRecord
	watcher *infoWatcher

	// iconSeq identifies the extraction whose result may still be shown.
	iconSeq uint64
	results chan iconResult
	done    chan struct{}

	log *zerolog.Logger
}

// New creates an engine for monitor.
func New(cfg *config.Config, monitor string, deps Deps, opts Options) *Engine {
	return &Engine{
		cfg:      cfg,
		monitor:  monitor,
		opts:     opts,
		backend:  deps.Backend,
		windows:  deps.Windows,
		icons:    deps.Icons,
		renderer: deps.Renderer,
		printer:  NewPrinter(deps.Out),
		events:   deps.Events,
		reloads:  deps.Reloads,
		icon:     iconRecord{visible: true},
		results:  make(chan iconResult, 8),
		done:     make(chan struct{}),
		log:      logger.WithComponent("engine"),
	}
}

func (e *Engine) String() string {
	return "engine"
}

// State returns a copy of the current focus state.
func (e *Engine) State() State {
	return e.state
}

// Serve processes events until ctx ends, then removes the overlay.
func (e *Engine) Serve(ctx context.Context) error {
	e.Start()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()

		case ev, ok := <-e.events:
			if !ok {
				e.shutdown()
				return fmt.Errorf("event channel closed")
			}
			e.Handle(ev)

		case r := <-e.results:
			e.handleResult(r)

		case cfg := <-e.reloads:
			e.Reload(cfg)
		}
	}
}

// Start syncs with the window manager: the focused window is processed if
// there is one, otherwise the empty label is printed.
func (e *Engine) Start() {
	id, ok, err := e.backend.FocusedWindow()
	if err != nil {
		e.log.Warn().Err(err).Msg("failed to query focused window")
	}
	if ok {
		e.OnWindowFocused(id)
		return
	}
	e.OnDesktopEmpty()
}

// Handle dispatches one canonical event.
func (e *Engine) Handle(ev wm.Event) {
	e.log.Debug().Stringer("kind", ev.Kind).Uint32("window", ev.Window).Msg("event")

	switch ev.Kind {
	case wm.WindowFocused:
		e.OnWindowFocused(ev.Window)
	case wm.DesktopEmpty:
		e.OnDesktopEmpty()
	case wm.FullscreenEntered:
		e.OnFullscreenEntered()
	}
}

// OnWindowFocused processes a window that gained focus.
func (e *Engine) OnWindowFocused(id uint32) {
	snap, err := e.resolve(id)
	if err != nil {
		// The window vanished; the next event describes what replaced it.
		e.log.Debug().Err(err).Uint32("window", id).Msg("skipping window")
		return
	}

	e.printer.Print(e.cfg.WindowLine(snap.Name, snap.NameType))
	e.state.focus(snap)
	e.restartWatcher(snap)

	fullscreen, err := e.windows.IsFullscreen(id)
	if err != nil {
		e.log.Debug().Err(err).Uint32("window", id).Msg("fullscreen check failed")
	}
	if fullscreen {
		e.OnFullscreenEntered()
		return
	}
	e.state.setFullscreen(false)

	positionChanged := e.updateDesktopCount()
	e.icon.visible = !e.desktopHasFullscreen()

	rebuild := ShouldRebuild(RebuildInput{
		PreviousFullscreen: e.state.PreviousFullscreen,
		CurrentFullscreen:  e.state.CurrentFullscreen,
		PositionChanged:    positionChanged,
		IdentityChanged:    e.state.identityChanged(),
	})

	if !e.icon.visible {
		if rebuild {
			e.icon.missed = true
		}
		return
	}
	if rebuild || e.icon.missed {
		e.rebuildIcon(snap)
	}
}

// OnDesktopEmpty processes a focused desktop without windows.
func (e *Engine) OnDesktopEmpty() {
	e.destroyIcon()
	e.stopWatcher()
	e.printer.Print(e.cfg.EmptyLine())
	e.state.clear()
	e.icon.missed = false
}

// OnFullscreenEntered hides the overlay while a fullscreen window is shown.
// The focused snapshot is kept so leaving fullscreen can reuse it.
func (e *Engine) OnFullscreenEntered() {
	e.state.setFullscreen(true)
	e.destroyIcon()
	e.icon.visible = false
}

// Reload swaps the configuration. Label formatting applies immediately,
// overlay geometry on the next rebuild.
func (e *Engine) Reload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	e.cfg = cfg
	e.icons.Reconfigure(cfg)
	if cur := e.state.Current; cur != nil {
		e.stopWatcher()
		e.printer.Print(cfg.WindowLine(cur.Name, cur.NameType))
		e.restartWatcher(cur)
	} else {
		e.printer.Print(cfg.EmptyLine())
	}
	e.log.Info().Msg("configuration applied")
}

// resolve builds a snapshot, waiting up to NameTimeout for the window to
// publish a display name.
func (e *Engine) resolve(id uint32) (*Snapshot, error) {
	deadline := time.Now().Add(e.opts.NameTimeout)

	var (
		name string
		typ  config.InfoType
		err  error
	)
	for {
		name, typ, err = e.windows.DisplayName(id, e.cfg.PrintInfo.Types)
		if err != nil {
			return nil, err
		}
		if name != "" || !time.Now().Before(deadline) {
			break
		}
		time.Sleep(e.opts.NameInterval)
	}

	identity, err := e.windows.Identity(id)
	if err != nil {
		if errors.Is(err, x11.ErrWindowGone) {
			return nil, err
		}
		e.log.Debug().Err(err).Uint32("window", id).Msg("no identity")
		identity = ""
	}

	return &Snapshot{ID: id, Name: name, NameType: typ, Identity: identity}, nil
}

// updateDesktopCount refreshes the desktop count and reports whether the
// icon position moved as a result.
func (e *Engine) updateDesktopCount() bool {
	count, err := e.backend.DesktopCount()
	if err != nil {
		e.log.Debug().Err(err).Msg("desktop count unavailable")
		return false
	}
	old := e.state.DesktopCount
	e.state.DesktopCount = count
	return e.cfg.IconX(old) != e.cfg.IconX(count)
}

func (e *Engine) desktopHasFullscreen() bool {
	desktop, ok, err := e.backend.FocusedDesktop()
	if err != nil || !ok {
		return false
	}
	_, full, err := e.backend.FullscreenWindow(desktop)
	if err != nil {
		e.log.Debug().Err(err).Str("desktop", desktop).Msg("fullscreen query failed")
		return false
	}
	return full
}

func (e *Engine) restartWatcher(snap *Snapshot) {
	if e.watcher != nil && e.watcher.windowID == snap.ID && e.watcher.running() {
		return
	}
	e.stopWatcher()
	e.watcher = startWatcher(e.windows, e.cfg, e.printer, snap.ID, snap.Name, e.opts.WatchInterval)
}

func (e *Engine) stopWatcher() {
	if e.watcher != nil {
		e.watcher.Stop()
		e.watcher = nil
	}
}

func (e *Engine) shutdown() {
	e.stopWatcher()
	e.destroyIcon()
	close(e.done)
}
