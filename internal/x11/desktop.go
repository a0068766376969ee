package x11

import (
	"fmt"
	"slices"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

const stateFullscreen = "_NET_WM_STATE_FULLSCREEN"

// CurrentWMName returns the _NET_WM_NAME advertised by the running window
// manager through its _NET_SUPPORTING_WM_CHECK child window.
func (c *Connection) CurrentWMName() (string, error) {
	child, err := ewmh.SupportingWmCheckGet(c.XUtil, c.Root)
	if err != nil {
		return "", fmt.Errorf("no EWMH compliant window manager: %w", err)
	}
	name, err := ewmh.WmNameGet(c.XUtil, child)
	if err != nil {
		return "", fmt.Errorf("failed to read window manager name: %w", err)
	}
	return name, nil
}

// IsFullscreen reports whether the window carries _NET_WM_STATE_FULLSCREEN.
func (c *Connection) IsFullscreen(windowID uint32) (bool, error) {
	win := xproto.Window(windowID)
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err != nil {
		if !c.windowExists(win) {
			return false, ErrWindowGone
		}
		// No _NET_WM_STATE at all means no state flags are set.
		return false, nil
	}
	return slices.Contains(states, stateFullscreen), nil
}
