// Package monitor runs the real-time helmet detection loop: it pulls frames
// from a capture source, runs the detector, annotates every detection and
// persists crops of violators.
package monitor

import (
	"context"
	"errors"
	"image"
	"time"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/model"
)

var (
	// ErrDeviceUnavailable is returned when the capture source cannot be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrEndOfStream is returned by Source.Read when no more frames are available.
	ErrEndOfStream = errors.New("end of stream")
)

// Detector finds objects in a frame. Only detections with a confidence at or
// above threshold are returned; their order carries no meaning.
type Detector interface {
	Detect(ctx context.Context, f frame.Frame, threshold float64) ([]model.Detection, error)
}

// Source yields frames. The returned frame stays valid until the next Read.
type Source interface {
	Read() (frame.Frame, error)
	Close() error
}

// Opener acquires a capture source.
type Opener interface {
	Open(ctx context.Context) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (Source, error)

func (f OpenerFunc) Open(ctx context.Context) (Source, error) {
	return f(ctx)
}

// Display renders frames and reports key presses.
type Display interface {
	Show(window string, f frame.Frame) error
	// PollKey waits up to timeout for a key press. A zero timeout waits
	// until a key is pressed.
	PollKey(timeout time.Duration) (key int, ok bool)
	Close() error
}

// Crop is the JPEG encoded sub-region of a frame around a violator.
type Crop struct {
	Seq        int
	Filename   string
	Data       []byte
	Region     image.Rectangle
	Label      string
	Confidence float64
}

// CropSink persists violator crops.
type CropSink interface {
	Save(ctx context.Context, crop Crop) error
}

// IsQuitKey reports whether key is the quit key, in either case.
func IsQuitKey(key int) bool {
	key &= 0xFF
	return key == 'q' || key == 'Q'
}
