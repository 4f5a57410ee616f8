// Package frame defines the pixel buffer the detection loop annotates in
// place, plus a pure Go implementation used for uploads and still images.
package frame

import (
	"errors"
	"image"
	"image/color"
)

// ErrEmptyRegion is returned when a requested region lies outside the frame.
var ErrEmptyRegion = errors.New("region is empty")

// Frame is a mutable 2D pixel buffer. Coordinates follow OpenCV: the origin is
// the top-left corner and PutText anchors text at its baseline.
type Frame interface {
	Bounds() image.Rectangle
	Rectangle(r image.Rectangle, c color.RGBA, thickness int) error
	PutText(text string, org image.Point, scale float64, c color.RGBA, thickness int) error
	// EncodeRegion returns the JPEG encoding of r clipped to the frame bounds.
	EncodeRegion(r image.Rectangle) ([]byte, error)
	Image() (image.Image, error)
}
