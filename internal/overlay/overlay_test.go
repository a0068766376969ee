package overlay

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

func TestScaleProducesSquare(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			src.Set(x, y, color.RGBA{R: 200, A: 0xff})
		}
	}

	dst := scale(src, 24)

	if got := dst.Bounds(); got != image.Rect(0, 0, 24, 24) {
		t.Fatalf("bounds = %v, want 24x24", got)
	}
	c := dst.RGBAAt(12, 12)
	if c.R < 190 || c.G != 0 || c.A != 0xff {
		t.Fatalf("center pixel = %+v, want solid red", c)
	}
}

func TestLoadScaledReadsJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kitty.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, 48, 48)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	img, err := loadScaled(path, 20)
	if err != nil {
		t.Fatalf("loadScaled: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 20 {
		t.Fatalf("bounds = %v, want 20x20", img.Bounds())
	}
}

func TestLoadScaledMissingFile(t *testing.T) {
	if _, err := loadScaled(filepath.Join(t.TempDir(), "missing.jpg"), 24); err == nil {
		t.Fatal("expected error for missing file")
	}
}
