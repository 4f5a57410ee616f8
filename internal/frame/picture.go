package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const jpegQuality = 95

// Picture is a Frame backed by an in-memory NRGBA image.
type Picture struct {
	img *image.NRGBA
}

// NewPicture creates a black frame of the given size.
func NewPicture(width, height int) *Picture {
	img := imaging.New(width, height, color.NRGBA{A: 255})
	return &Picture{img: img}
}

// FromImage copies img into a new Picture anchored at (0,0).
func FromImage(img image.Image) *Picture {
	return &Picture{img: imaging.Clone(img)}
}

// Decode reads a JPEG/PNG/GIF/BMP/TIFF image, applying EXIF orientation.
func Decode(r io.Reader) (*Picture, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img), nil
}

// Open decodes the image file at path.
func Open(path string) (*Picture, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return FromImage(img), nil
}

func (p *Picture) Bounds() image.Rectangle {
	return p.img.Bounds()
}

// Rectangle draws the outline of r with bands of the given thickness centered
// on each edge, the way OpenCV strokes rectangles.
func (p *Picture) Rectangle(r image.Rectangle, c color.RGBA, thickness int) error {
	if thickness < 1 {
		thickness = 1
	}
	half := thickness / 2
	src := image.NewUniform(c)

	x0, x1 := r.Min.X-half, r.Max.X-half+thickness
	y0, y1 := r.Min.Y-half, r.Max.Y-half+thickness

	bands := []image.Rectangle{
		image.Rect(x0, r.Min.Y-half, x1, r.Min.Y-half+thickness), // top
		image.Rect(x0, r.Max.Y-half, x1, r.Max.Y-half+thickness), // bottom
		image.Rect(r.Min.X-half, y0, r.Min.X-half+thickness, y1), // left
		image.Rect(r.Max.X-half, y0, r.Max.X-half+thickness, y1), // right
	}
	for _, band := range bands {
		draw.Draw(p.img, band.Intersect(p.img.Bounds()), src, image.Point{}, draw.Src)
	}
	return nil
}

// PutText draws text with its baseline starting at org. The bitmap face has a
// fixed size, so scale and thickness are accepted for interface parity only.
func (p *Picture) PutText(text string, org image.Point, scale float64, c color.RGBA, thickness int) error {
	d := &font.Drawer{
		Dst:  p.img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(org.X, org.Y),
	}
	d.DrawString(text)
	return nil
}

func (p *Picture) EncodeRegion(r image.Rectangle) ([]byte, error) {
	r = r.Intersect(p.img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyRegion
	}

	var buf bytes.Buffer
	crop := imaging.Crop(p.img, r)
	if err := imaging.Encode(&buf, crop, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Picture) Image() (image.Image, error) {
	return p.img, nil
}

// Save writes the whole frame to path; the format follows the extension.
func (p *Picture) Save(path string) error {
	if err := imaging.Save(p.img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
