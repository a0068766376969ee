// Package icon turns a window's _NET_WM_ICON property into cached JPEG files.
package icon

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/ixwindow/ixwindow/internal/config"
)

// Raw is one image of a _NET_WM_ICON property. Pix holds width*height
// pixels of 4 bytes each in B, G, R, A order.
type Raw struct {
	Width  int
	Height int
	Pix    []byte
}

// Parse splits property data into the images it declares. Each image is a
// little-endian width and height followed by width*height 32-bit ARGB
// values. Parsing stops at the first image whose pixels would run past the
// end of data.
func Parse(data []byte) []Raw {
	var icons []Raw
	for len(data) >= 8 {
		w := uint64(binary.LittleEndian.Uint32(data[0:4]))
		h := uint64(binary.LittleEndian.Uint32(data[4:8]))
		data = data[8:]

		if w != 0 && h > uint64(len(data))/4/w {
			break
		}
		n := w * h * 4
		if n > 0 {
			icons = append(icons, Raw{Width: int(w), Height: int(h), Pix: data[:n]})
		}
		data = data[n:]
	}
	return icons
}

// Select picks one icon according to mode. size is the overlay size used by
// IconSelectClosest. It returns false when icons is empty.
func Select(icons []Raw, mode config.IconSelection, size int) (Raw, bool) {
	if len(icons) == 0 {
		return Raw{}, false
	}

	switch mode {
	case config.IconSelectFirst:
		return icons[0], true
	case config.IconSelectClosest:
		best := icons[0]
		for _, ic := range icons[1:] {
			if absDiff(ic.Width, size) < absDiff(best.Width, size) {
				best = ic
			}
		}
		return best, true
	default:
		best := icons[0]
		for _, ic := range icons[1:] {
			if ic.Width >= best.Width {
				best = ic
			}
		}
		return best, true
	}
}

// Composite blends the icon onto an opaque background:
// out = (1-a)*bg + a*fg for every channel.
func Composite(ic Raw, bg color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ic.Width, ic.Height))
	for i, j := 0, 0; j+3 < len(ic.Pix); i, j = i+4, j+4 {
		b, g, r := ic.Pix[j], ic.Pix[j+1], ic.Pix[j+2]
		a := float64(ic.Pix[j+3]) / 255.0

		img.Pix[i] = blend(bg.R, r, a)
		img.Pix[i+1] = blend(bg.G, g, a)
		img.Pix[i+2] = blend(bg.B, b, a)
		img.Pix[i+3] = 0xff
	}
	return img
}

func blend(bg, fg uint8, a float64) uint8 {
	return uint8((1.0-a)*float64(bg) + a*float64(fg))
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
