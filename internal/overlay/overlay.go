// Package overlay shows cached icons in small override-redirect windows.
package overlay

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"golang.org/x/image/draw"

	"github.com/ixwindow/ixwindow/internal/x11"
)

// WindowClass is set as WM_CLASS on every overlay so stray windows can be
// found with xdotool or xkill.
const WindowClass = "ixwindow-icon"

// Renderer creates and destroys icon overlays. It keeps no state: the caller
// owns the returned window id.
type Renderer struct {
	conn *x11.Connection
}

// NewRenderer creates a renderer on conn.
func NewRenderer(conn *x11.Connection) *Renderer {
	return &Renderer{conn: conn}
}

// Show displays the image at path as a size x size overlay at (x, y)
// relative to the named monitor and returns the overlay window id.
func (r *Renderer) Show(path string, x, y, size int, monitor string) (uint32, error) {
	mon, err := r.conn.MonitorByName(monitor)
	if err != nil {
		return 0, err
	}

	img, err := loadScaled(path, size)
	if err != nil {
		return 0, err
	}

	wid, err := r.createOverrideRedirectWindow(mon.X+x, mon.Y+y, size)
	if err != nil {
		return 0, fmt.Errorf("create overlay window: %w", err)
	}

	xu := r.conn.XUtil
	ximg := xgraphics.NewConvert(xu, img)
	if err := ximg.XSurfaceSet(wid); err != nil {
		xproto.DestroyWindow(xu.Conn(), wid)
		return 0, fmt.Errorf("attach icon pixmap: %w", err)
	}
	ximg.XDraw()

	xproto.MapWindow(xu.Conn(), wid)
	ximg.XPaint(wid)

	// The window keeps its background after the pixmap is released.
	ximg.Destroy()
	r.conn.Sync()

	return uint32(wid), nil
}

// Destroy removes an overlay. A window that is already gone is not an error.
func (r *Renderer) Destroy(handle uint32) error {
	err := xproto.DestroyWindowChecked(r.conn.XUtil.Conn(), xproto.Window(handle)).Check()
	if err != nil {
		var badWindow xproto.WindowError
		if errors.As(err, &badWindow) {
			return nil
		}
		return fmt.Errorf("destroy overlay %#x: %w", handle, err)
	}
	return nil
}

// createOverrideRedirectWindow creates a borderless window the window
// manager ignores, tagged with WindowClass and transparent to input.
func (r *Renderer) createOverrideRedirectWindow(x, y, size int) (xproto.Window, error) {
	xu := r.conn.XUtil
	conn := xu.Conn()
	screen := xu.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, err
	}

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		r.conn.Root,
		int16(x), int16(y),
		uint16(size), uint16(size),
		0, // border_width
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		// Value list order follows the bit positions of the mask.
		[]uint32{0, 1},
	).Check()
	if err != nil {
		return 0, err
	}

	if err := icccm.WmClassSet(xu, wid, &icccm.WmClass{Instance: WindowClass, Class: WindowClass}); err != nil {
		xproto.DestroyWindow(conn, wid)
		return 0, fmt.Errorf("set WM_CLASS: %w", err)
	}

	// An empty input region lets clicks fall through to the bar below.
	shape.Rectangles(conn, shape.SoSet, shape.SkInput, xproto.ClipOrderingUnsorted, wid, 0, 0, nil)

	return wid, nil
}

func loadScaled(path string, size int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open icon: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode icon %s: %w", path, err)
	}
	return scale(src, size), nil
}

// scale resizes src to a size x size square with Catmull-Rom resampling.
func scale(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
