package ai

import (
	"fmt"
	"image"

	"helmetwatch/internal/model"

	"gocv.io/x/gocv"
)

const (
	// DefaultInputSize is the square input resolution of the exported model.
	DefaultInputSize = 640
	// classOffset separates boxes of different classes during suppression.
	classOffset = 8192
)

// Geometry maps model input coordinates back onto the source frame.
type Geometry struct {
	InputSize int
	Width     int
	Height    int
}

func (g Geometry) scale() (float64, float64) {
	return float64(g.Width) / float64(g.InputSize), float64(g.Height) / float64(g.InputSize)
}

// ParseYOLOv8 decodes a YOLOv8 detection head laid out as [4+classes, anchors]
// (the batch dimension already dropped). Each anchor contributes at most one
// detection: its best scoring class, kept when the score reaches threshold.
func ParseYOLOv8(data []float32, dims []int, g Geometry, threshold float64) ([]model.Detection, error) {
	if len(dims) == 3 && dims[0] == 1 {
		dims = dims[1:]
	}
	if len(dims) != 2 || dims[0] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	channels, anchors := dims[0], dims[1]
	if len(data) < channels*anchors {
		return nil, fmt.Errorf("output has %d values, shape %v needs %d", len(data), dims, channels*anchors)
	}

	sx, sy := g.scale()
	var detections []model.Detection
	for i := 0; i < anchors; i++ {
		best := float32(0)
		classID := -1
		for c := 4; c < channels; c++ {
			if score := data[c*anchors+i]; score > best {
				best = score
				classID = c - 4
			}
		}
		if classID < 0 || float64(best) < threshold {
			continue
		}

		cx := float64(data[0*anchors+i])
		cy := float64(data[1*anchors+i])
		w := float64(data[2*anchors+i])
		h := float64(data[3*anchors+i])

		detections = append(detections, model.Detection{
			ClassID:    classID,
			Confidence: float64(best),
			Box:        model.BoxFromFloat((cx-w/2)*sx, (cy-h/2)*sy, (cx+w/2)*sx, (cy+h/2)*sy),
		})
	}
	return detections, nil
}

// Suppress runs non-maximum suppression per class and returns the kept
// detections ordered by descending confidence.
func Suppress(detections []model.Detection, threshold, iou float64) []model.Detection {
	if len(detections) == 0 {
		return nil
	}

	boxes := make([]image.Rectangle, len(detections))
	scores := make([]float32, len(detections))
	for i, d := range detections {
		offset := image.Pt(d.ClassID*classOffset, d.ClassID*classOffset)
		boxes[i] = d.Box.Add(offset)
		scores[i] = float32(d.Confidence)
	}

	indices := gocv.NMSBoxes(boxes, scores, float32(threshold), float32(iou))

	kept := make([]model.Detection, 0, len(indices))
	for _, idx := range indices {
		kept = append(kept, detections[idx])
	}
	return kept
}
