package frame

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

var red = color.RGBA{R: 255, A: 255}

func pixel(t *testing.T, p *Picture, x, y int) color.NRGBA {
	t.Helper()
	img, err := p.Image()
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	return img.(*image.NRGBA).NRGBAAt(x, y)
}

func TestPicture_Rectangle(t *testing.T) {
	p := NewPicture(120, 120)

	if err := p.Rectangle(image.Rect(10, 10, 50, 50), red, 2); err != nil {
		t.Fatalf("Rectangle failed: %v", err)
	}

	onEdge := []image.Point{{10, 10}, {50, 50}, {30, 10}, {10, 30}, {50, 30}, {30, 50}, {9, 9}}
	for _, pt := range onEdge {
		if c := pixel(t, p, pt.X, pt.Y); c.R != 255 || c.G != 0 {
			t.Errorf("pixel %v = %v, expected red", pt, c)
		}
	}

	offEdge := []image.Point{{30, 30}, {12, 12}, {52, 52}, {80, 80}}
	for _, pt := range offEdge {
		if c := pixel(t, p, pt.X, pt.Y); c.R != 0 {
			t.Errorf("pixel %v = %v, expected untouched", pt, c)
		}
	}
}

func TestPicture_RectangleOutsideBounds(t *testing.T) {
	p := NewPicture(20, 20)

	if err := p.Rectangle(image.Rect(100, 100, 200, 200), red, 2); err != nil {
		t.Fatalf("Rectangle outside bounds should not fail: %v", err)
	}
}

func TestPicture_PutText(t *testing.T) {
	p := NewPicture(200, 40)

	if err := p.PutText("Without Helmet 0.90", image.Pt(5, 25), 0.6, red, 2); err != nil {
		t.Fatalf("PutText failed: %v", err)
	}

	img, _ := p.Image()
	found := false
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y && !found; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.(*image.NRGBA).NRGBAAt(x, y).R > 0 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Error("expected text pixels to be drawn")
	}
}

func TestPicture_PutTextAboveTop(t *testing.T) {
	p := NewPicture(50, 50)

	if err := p.PutText("label", image.Pt(0, -10), 0.6, red, 2); err != nil {
		t.Errorf("PutText above the frame should be clipped, got %v", err)
	}
}

func TestPicture_EncodeRegion(t *testing.T) {
	p := NewPicture(100, 80)

	tests := []struct {
		name       string
		region     image.Rectangle
		wantWidth  int
		wantHeight int
	}{
		{"inside", image.Rect(10, 10, 50, 40), 40, 30},
		{"clipped right", image.Rect(80, 10, 150, 30), 20, 20},
		{"clipped negative", image.Rect(-10, -10, 10, 10), 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := p.EncodeRegion(tt.region)
			if err != nil {
				t.Fatalf("EncodeRegion failed: %v", err)
			}
			img, err := imaging.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("crop is not a valid JPEG: %v", err)
			}
			if img.Bounds().Dx() != tt.wantWidth || img.Bounds().Dy() != tt.wantHeight {
				t.Errorf("crop = %dx%d, expected %dx%d",
					img.Bounds().Dx(), img.Bounds().Dy(), tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestPicture_EncodeRegionOutside(t *testing.T) {
	p := NewPicture(100, 80)

	_, err := p.EncodeRegion(image.Rect(200, 200, 300, 300))
	if !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("EncodeRegion outside = %v, expected ErrEmptyRegion", err)
	}
}

func TestDecode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 32, 16))
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}

	p, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.Bounds() != image.Rect(0, 0, 32, 16) {
		t.Errorf("bounds = %v", p.Bounds())
	}

	if _, err := Decode(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Error("expected decode error for garbage input")
	}
}

func TestPicture_Save(t *testing.T) {
	p := NewPicture(10, 10)
	path := filepath.Join(t.TempDir(), "out.jpg")

	if err := p.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := Open(path); err != nil {
		t.Errorf("saved image cannot be reopened: %v", err)
	}
}
