package x11

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/ixwindow/ixwindow/internal/config"
)

// ErrWindowGone is returned when a window id no longer resolves on the server.
var ErrWindowGone = errors.New("window no longer exists")

// DisplayName probes types in order and returns the first non-empty value
// together with the property that produced it. An empty name with a nil
// error means the window exists but has none of the properties set yet.
func (c *Connection) DisplayName(windowID uint32, types []config.InfoType) (string, config.InfoType, error) {
	win := xproto.Window(windowID)
	name, typ, err := firstNonEmpty(types, func(t config.InfoType) (string, error) {
		return c.readInfo(win, t)
	})
	if err != nil && !c.windowExists(win) {
		return "", "", ErrWindowGone
	}
	return name, typ, nil
}

// Identity returns the key used to name the window's icon cache file.
func (c *Connection) Identity(windowID uint32) (string, error) {
	win := xproto.Window(windowID)
	class, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil {
		if !c.windowExists(win) {
			return "", ErrWindowGone
		}
		return "", fmt.Errorf("read WM_CLASS of %#x: %w", windowID, err)
	}
	return identityFromClass(class.Instance, class.Class), nil
}

// IconData returns the raw _NET_WM_ICON property bytes. A window without
// the property yields nil data and a nil error.
func (c *Connection) IconData(windowID uint32) ([]byte, error) {
	win := xproto.Window(windowID)
	reply, err := xprop.GetProperty(c.XUtil, win, "_NET_WM_ICON")
	if err != nil {
		if !c.windowExists(win) {
			return nil, ErrWindowGone
		}
		return nil, nil
	}
	return reply.Value, nil
}

func (c *Connection) readInfo(win xproto.Window, t config.InfoType) (string, error) {
	switch t {
	case config.InfoWmInstance, config.InfoWmClass:
		class, err := icccm.WmClassGet(c.XUtil, win)
		if err != nil {
			return "", err
		}
		if t == config.InfoWmInstance {
			return class.Instance, nil
		}
		return class.Class, nil
	case config.InfoWmName:
		return icccm.WmNameGet(c.XUtil, win)
	case config.InfoNetWmName:
		return ewmh.WmNameGet(c.XUtil, win)
	case config.InfoNetWmVisibleName:
		return ewmh.WmVisibleNameGet(c.XUtil, win)
	}
	return "", fmt.Errorf("unsupported property %q", t)
}

// windowExists distinguishes "property not set" from "window destroyed",
// which xgbutil reports the same way.
func (c *Connection) windowExists(win xproto.Window) bool {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), win).Reply()
	if err == nil {
		return true
	}
	var badWindow xproto.WindowError
	return !errors.As(err, &badWindow)
}

// firstNonEmpty returns the first value read that is non-empty. The error
// is only reported when every read failed.
func firstNonEmpty(types []config.InfoType, read func(config.InfoType) (string, error)) (string, config.InfoType, error) {
	var lastErr error
	failures := 0
	for _, t := range types {
		value, err := read(t)
		if err != nil {
			lastErr = err
			failures++
			continue
		}
		if value != "" {
			return value, t, nil
		}
	}
	if failures == len(types) && lastErr != nil {
		return "", "", lastErr
	}
	return "", "", nil
}

func identityFromClass(instance, class string) string {
	id := class
	if id == "" {
		id = instance
	}
	return identityReplacer.Replace(strings.TrimSpace(id))
}

// identityReplacer keeps identities usable as file names.
var identityReplacer = strings.NewReplacer(" ", "-", "/", "-")
