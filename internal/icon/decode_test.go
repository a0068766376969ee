package icon

import (
	"encoding/binary"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixwindow/ixwindow/internal/config"
)

// encodeIcon builds one _NET_WM_ICON image filled with argb.
func encodeIcon(w, h uint32, argb uint32) []byte {
	buf := make([]byte, 8, 8+w*h*4)
	binary.LittleEndian.PutUint32(buf[0:4], w)
	binary.LittleEndian.PutUint32(buf[4:8], h)
	px := make([]byte, 4)
	binary.LittleEndian.PutUint32(px, argb)
	for i := uint32(0); i < w*h; i++ {
		buf = append(buf, px...)
	}
	return buf
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func sizes(icons []Raw) [][2]int {
	var out [][2]int
	for _, ic := range icons {
		out = append(out, [2]int{ic.Width, ic.Height})
	}
	return out
}

func TestParse(t *testing.T) {
	data := concat(
		encodeIcon(16, 16, 0xff112233),
		encodeIcon(32, 32, 0xff445566),
		encodeIcon(2, 1, 0x80ffffff),
	)

	icons := Parse(data)
	if diff := cmp.Diff([][2]int{{16, 16}, {32, 32}, {2, 1}}, sizes(icons)); diff != "" {
		t.Fatalf("sizes mismatch (-want +got):\n%s", diff)
	}
	// Pixels are stored as little-endian ARGB: bytes B, G, R, A.
	assert.Equal(t, []byte{0x33, 0x22, 0x11, 0xff}, icons[0].Pix[:4])
}

func TestParse_StopsOnTruncatedImage(t *testing.T) {
	full := encodeIcon(4, 4, 0xffffffff)
	truncated := encodeIcon(64, 64, 0xffffffff)[:100]

	icons := Parse(concat(full, truncated))
	require.Len(t, icons, 1)
	assert.Equal(t, 4, icons[0].Width)
}

func TestParse_EdgeCases(t *testing.T) {
	assert.Empty(t, Parse(nil))
	assert.Empty(t, Parse([]byte{1, 2, 3}))

	// A header claiming an enormous size must not overflow or panic.
	huge := make([]byte, 8)
	binary.LittleEndian.PutUint32(huge[0:4], 0xffffffff)
	binary.LittleEndian.PutUint32(huge[4:8], 0xffffffff)
	assert.Empty(t, Parse(huge))

	// w*h*4 wraps to 4 in 64 bits; the header must still be rejected.
	wrapped := make([]byte, 12)
	binary.LittleEndian.PutUint32(wrapped[0:4], 0x80010001)
	binary.LittleEndian.PutUint32(wrapped[4:8], 0x7fff0001)
	assert.Empty(t, Parse(wrapped))

	// Zero-sized images are skipped but parsing continues.
	icons := Parse(concat(encodeIcon(0, 0, 0), encodeIcon(1, 1, 0xff000000)))
	require.Len(t, icons, 1)
	assert.Equal(t, 1, icons[0].Width)
}

func TestSelect(t *testing.T) {
	icons := []Raw{
		{Width: 16, Height: 16, Pix: []byte{1}},
		{Width: 48, Height: 48, Pix: []byte{2}},
		{Width: 22, Height: 22, Pix: []byte{3}},
		{Width: 48, Height: 48, Pix: []byte{4}},
	}

	tests := []struct {
		mode config.IconSelection
		size int
		want byte
	}{
		{config.IconSelectLargest, 24, 4},
		{config.IconSelectFirst, 24, 1},
		{config.IconSelectClosest, 24, 3},
		{config.IconSelectClosest, 100, 2},
	}
	for _, tc := range tests {
		got, ok := Select(icons, tc.mode, tc.size)
		require.True(t, ok)
		assert.Equal(t, tc.want, got.Pix[0], "mode=%s size=%d", tc.mode, tc.size)
	}

	_, ok := Select(nil, config.IconSelectLargest, 24)
	assert.False(t, ok)
}

func TestComposite(t *testing.T) {
	bg := color.RGBA{R: 0x20, G: 0x40, B: 0x60, A: 0xff}
	ic := Raw{
		Width:  3,
		Height: 1,
		Pix: []byte{
			0x10, 0x20, 0xff, 0xff, // opaque: fg only
			0x10, 0x20, 0xff, 0x00, // transparent: bg only
			0x00, 0x00, 0xff, 0x80, // half red over bg
		},
	}

	img := Composite(ic, bg)

	assert.Equal(t, color.RGBA{R: 0xff, G: 0x20, B: 0x10, A: 0xff}, img.RGBAAt(0, 0))
	assert.Equal(t, bg, img.RGBAAt(1, 0))

	a := float64(0x80) / 255.0
	want := color.RGBA{
		R: uint8((1-a)*0x20 + a*0xff),
		G: uint8((1 - a) * 0x40),
		B: uint8((1 - a) * 0x60),
		A: 0xff,
	}
	assert.Equal(t, want, img.RGBAAt(2, 0))
}
