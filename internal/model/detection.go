package model

import "image"

// Detection is one localized object returned by a detector for a single frame.
// Box corners are integer pixel coordinates truncated from the detector output.
type Detection struct {
	ClassID    int             `json:"class_id"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// BoxFromFloat truncates a floating point corner box to integer pixels.
func BoxFromFloat(x1, y1, x2, y2 float64) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(int(x1), int(y1)),
		Max: image.Pt(int(x2), int(y2)),
	}
}
