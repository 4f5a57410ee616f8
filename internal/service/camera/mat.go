// Package camera adapts OpenCV capture devices, video files and HighGUI
// windows to the detection loop.
package camera

import (
	"fmt"
	"image"
	"image/color"

	"helmetwatch/internal/frame"

	"gocv.io/x/gocv"
)

// MatFrame is a Frame backed by a BGR gocv.Mat. It does not own the Mat.
type MatFrame struct {
	mat gocv.Mat
}

func NewMatFrame(mat gocv.Mat) *MatFrame {
	return &MatFrame{mat: mat}
}

// Mat returns the underlying matrix.
func (m *MatFrame) Mat() gocv.Mat {
	return m.mat
}

func (m *MatFrame) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.mat.Cols(), m.mat.Rows())
}

func (m *MatFrame) Rectangle(r image.Rectangle, c color.RGBA, thickness int) error {
	if err := gocv.Rectangle(&m.mat, r, c, thickness); err != nil {
		return fmt.Errorf("failed to draw rectangle: %v", err)
	}
	return nil
}

func (m *MatFrame) PutText(text string, org image.Point, scale float64, c color.RGBA, thickness int) error {
	if err := gocv.PutText(&m.mat, text, org, gocv.FontHersheySimplex, scale, c, thickness); err != nil {
		return fmt.Errorf("failed to draw text: %v", err)
	}
	return nil
}

func (m *MatFrame) EncodeRegion(r image.Rectangle) ([]byte, error) {
	r = r.Intersect(m.Bounds())
	if r.Empty() {
		return nil, frame.ErrEmptyRegion
	}

	region := m.mat.Region(r)
	defer region.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, region)
	if err != nil {
		return nil, fmt.Errorf("failed to encode region: %v", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

func (m *MatFrame) Image() (image.Image, error) {
	return m.mat.ToImage()
}

// MatOf returns a Mat holding the pixels of f. Frames that are already Mat
// backed are returned as is; anything else is converted into a new Mat that
// is freed by release.
func MatOf(f frame.Frame) (mat gocv.Mat, release func(), err error) {
	if mf, ok := f.(*MatFrame); ok {
		return mf.mat, func() {}, nil
	}

	img, err := f.Image()
	if err != nil {
		return gocv.Mat{}, nil, err
	}
	mat, err = gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("failed to convert image: %v", err)
	}
	return mat, func() { mat.Close() }, nil
}
