// Package wm talks to the supported tiling window managers. Each variant
// answers synchronous queries about one monitor and translates its native
// event stream into the three transitions the engine understands.
package wm

import (
	"context"
	"fmt"

	"github.com/ixwindow/ixwindow/internal/config"
)

// EventKind enumerates the canonical transitions.
type EventKind int

const (
	// WindowFocused means Window became (or still is) the focused window.
	WindowFocused EventKind = iota
	// DesktopEmpty means the focused desktop has no visible windows.
	DesktopEmpty
	// FullscreenEntered means the focused desktop now shows a fullscreen window.
	FullscreenEntered
)

func (k EventKind) String() string {
	switch k {
	case WindowFocused:
		return "window_focused"
	case DesktopEmpty:
		return "desktop_empty"
	case FullscreenEntered:
		return "fullscreen_entered"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one canonical transition.
type Event struct {
	Kind   EventKind
	Window uint32
}

// Focused builds a WindowFocused event.
func Focused(id uint32) Event {
	return Event{Kind: WindowFocused, Window: id}
}

// Backend answers queries about the monitor it was created for. Desktop ids
// are opaque strings produced by the same backend.
type Backend interface {
	// FocusedWindow returns the focused window on the monitor, if any.
	FocusedWindow() (uint32, bool, error)
	// FocusedDesktop returns the focused desktop on the monitor, if any.
	FocusedDesktop() (string, bool, error)
	// FullscreenWindow returns a fullscreen window on desktop, if any.
	FullscreenWindow(desktop string) (uint32, bool, error)
	IsDesktopEmpty(desktop string) (bool, error)
	DesktopCount() (uint32, error)
}

// Listener turns a window manager's event stream into canonical events.
// Serve blocks until ctx is done or the stream breaks; it is run under the
// daemon supervisor, which restarts it on failure.
type Listener interface {
	Serve(ctx context.Context) error
	String() string
}

// FullscreenFunc reports whether an X window is fullscreen.
type FullscreenFunc func(windowID uint32) (bool, error)

// New creates the backend and listener for wm on monitor. Events are
// delivered on out.
func New(wm config.WM, monitor string, isFullscreen FullscreenFunc, out chan<- Event) (Backend, Listener, error) {
	switch wm {
	case config.WMI3:
		b := NewI3(monitor, isFullscreen)
		return b, NewI3Listener(b, out), nil
	case config.WMBspwm:
		client, err := NewBspwmClient()
		if err != nil {
			return nil, nil, err
		}
		b := NewBspwm(client, monitor)
		return b, NewBspwmListener(b, out), nil
	}
	return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownWM, wm)
}

// emptyOrFullscreen is the desktop-focus translation shared by both
// variants: the focused desktop is reported empty, fullscreen, or neither.
func emptyOrFullscreen(b Backend, desktop string) ([]Event, error) {
	var events []Event

	empty, err := b.IsDesktopEmpty(desktop)
	if err != nil {
		return nil, err
	}
	if empty {
		events = append(events, Event{Kind: DesktopEmpty})
	}

	if _, ok, err := b.FullscreenWindow(desktop); err != nil {
		return events, err
	} else if ok {
		events = append(events, Event{Kind: FullscreenEntered})
	}
	return events, nil
}

// focusedOrEmpty re-resolves focus after a window went away.
func focusedOrEmpty(b Backend) ([]Event, error) {
	id, ok, err := b.FocusedWindow()
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Event{{Kind: DesktopEmpty}}, nil
	}
	return []Event{Focused(id)}, nil
}

// send delivers events unless ctx ends first.
func send(ctx context.Context, out chan<- Event, events []Event) error {
	for _, ev := range events {
		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
