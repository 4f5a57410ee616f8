package monitor

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
)

const (
	compliantID = 0
	violationID = 1
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(t.TempDir(), nil, nil)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func det(classID int, conf float64, x1, y1, x2, y2 int) model.Detection {
	return model.Detection{ClassID: classID, Confidence: conf, Box: image.Rect(x1, y1, x2, y2)}
}

// fakeSource yields n blank frames, then ErrEndOfStream.
type fakeSource struct {
	frames  int
	width   int
	height  int
	read    int
	closed  bool
	readErr error
}

func (s *fakeSource) Read() (frame.Frame, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	if s.read >= s.frames {
		return nil, ErrEndOfStream
	}
	s.read++
	return frame.NewPicture(s.width, s.height), nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func openerFor(src *fakeSource) Opener {
	return OpenerFunc(func(context.Context) (Source, error) { return src, nil })
}

// fakeDetector returns script[i] for the i-th call, or nothing.
type fakeDetector struct {
	script [][]model.Detection
	calls  int
	failOn int // 1-based call that fails, 0 never
}

func (d *fakeDetector) Detect(_ context.Context, _ frame.Frame, _ float64) ([]model.Detection, error) {
	d.calls++
	if d.failOn == d.calls {
		return nil, errors.New("inference crashed")
	}
	if d.calls-1 < len(d.script) {
		return d.script[d.calls-1], nil
	}
	return nil, nil
}

// everyFrame repeats the same detections for n frames.
func everyFrame(n int, dets ...model.Detection) [][]model.Detection {
	script := make([][]model.Detection, n)
	for i := range script {
		script[i] = dets
	}
	return script
}

// fakeDisplay records shown frames and answers key polls from a script.
type fakeDisplay struct {
	keys    map[int]int // poll number (1-based) -> key code
	shown   int
	polls   int
	waits   []time.Duration
	closed  bool
	lastWin string
}

func (d *fakeDisplay) Show(window string, _ frame.Frame) error {
	d.shown++
	d.lastWin = window
	return nil
}

func (d *fakeDisplay) PollKey(timeout time.Duration) (int, bool) {
	d.polls++
	d.waits = append(d.waits, timeout)
	key, ok := d.keys[d.polls]
	return key, ok
}

func (d *fakeDisplay) Close() error {
	d.closed = true
	return nil
}

// dirSink writes crops into a directory like the real store does.
type dirSink struct {
	dir   string
	crops []Crop
	fail  bool
}

func (s *dirSink) Save(_ context.Context, crop Crop) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.crops = append(s.crops, crop)
	return os.WriteFile(filepath.Join(s.dir, crop.Filename), crop.Data, 0644)
}

func (s *dirSink) names() []string {
	var names []string
	for _, c := range s.crops {
		names = append(names, c.Filename)
	}
	return names
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
