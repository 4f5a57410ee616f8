package monitor

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/helmet"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
)

// Annotated is a detection after label resolution and drawing.
type Annotated struct {
	Label      string          `json:"label"`
	Class      string          `json:"class"`
	Confidence float64         `json:"confidence"`
	Box        [4]int          `json:"box"`
	Color      color.RGBA      `json:"-"`
	Crop       string          `json:"crop,omitempty"`
	region     image.Rectangle // clipped crop region, violators only
}

// FrameResult describes what Annotate did to one frame.
type FrameResult struct {
	Detections []Annotated `json:"detections"`
	Violations int         `json:"violations"`
	Compliant  int         `json:"compliant"`
	Saved      []string    `json:"saved"`
}

// Annotator draws detections onto frames and persists violator crops. It owns
// the violation counter of a single run.
type Annotator struct {
	labels  helmet.Labels
	palette helmet.Palette
	namer   Namer
	sink    CropSink
	counter Counter
	logger  *logger.Logger
}

func NewAnnotator(labels helmet.Labels, palette helmet.Palette, namer Namer, sink CropSink, logger *logger.Logger) *Annotator {
	return &Annotator{
		labels:  labels,
		palette: palette,
		namer:   namer,
		sink:    sink,
		logger:  logger,
	}
}

// Count returns the number of violator crops taken so far.
func (a *Annotator) Count() int {
	return a.counter.Value()
}

// Annotate draws every detection onto f and saves a crop for each violator
// whose box overlaps the frame. Detections are not filtered again here; the
// detector already applied the confidence threshold.
func (a *Annotator) Annotate(ctx context.Context, f frame.Frame, detections []model.Detection) (FrameResult, error) {
	result := FrameResult{Detections: make([]Annotated, 0, len(detections))}
	bounds := f.Bounds()

	for _, det := range detections {
		label, class := a.labels.Resolve(det.ClassID)
		c := a.palette.Color(class)
		box := det.Box

		if err := f.Rectangle(box, c, helmet.BoxThickness); err != nil {
			return result, fmt.Errorf("failed to draw rectangle: %w", err)
		}
		text := fmt.Sprintf("%s %.2f", label, det.Confidence)
		org := image.Pt(box.Min.X, box.Min.Y-helmet.LabelOffset)
		if err := f.PutText(text, org, helmet.FontScale, c, helmet.TextThickness); err != nil {
			return result, fmt.Errorf("failed to draw text: %w", err)
		}

		ann := Annotated{
			Label:      label,
			Class:      class.String(),
			Confidence: det.Confidence,
			Box:        [4]int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
			Color:      c,
		}

		switch class {
		case helmet.Compliant:
			result.Compliant++
		case helmet.Violation:
			result.Violations++
			ann.region = box.Intersect(bounds)
			if !ann.region.Empty() {
				ann.Crop = a.persist(ctx, f, ann)
				if ann.Crop != "" {
					result.Saved = append(result.Saved, ann.Crop)
				}
			}
		}

		result.Detections = append(result.Detections, ann)
	}

	return result, nil
}

// persist numbers and saves one violator crop. Write failures are logged and
// do not interrupt the frame.
func (a *Annotator) persist(ctx context.Context, f frame.Frame, ann Annotated) string {
	seq := a.counter.Next()
	name := a.namer.Name(seq)

	data, err := f.EncodeRegion(ann.region)
	if err != nil {
		a.logger.Warning("Failed to encode violator crop %s: %v", name, err)
		return ""
	}

	crop := Crop{
		Seq:        seq,
		Filename:   name,
		Data:       data,
		Region:     ann.region,
		Label:      ann.Label,
		Confidence: ann.Confidence,
	}
	if err := a.sink.Save(ctx, crop); err != nil {
		a.logger.Warning("Failed to save violator crop %s: %v", name, err)
		return ""
	}
	return name
}
