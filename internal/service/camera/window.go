package camera

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/service/monitor"

	"gocv.io/x/gocv"
)

// Window shows frames in HighGUI windows, created on first use per name.
type Window struct {
	mu      sync.Mutex
	windows map[string]*gocv.Window
}

func NewWindow() *Window {
	return &Window{windows: make(map[string]*gocv.Window)}
}

func (w *Window) Show(name string, f frame.Frame) error {
	w.mu.Lock()
	win, ok := w.windows[name]
	if !ok {
		win = gocv.NewWindow(name)
		w.windows[name] = win
	}
	w.mu.Unlock()

	mat, release, err := MatOf(f)
	if err != nil {
		return err
	}
	defer release()

	if err := win.IMShow(mat); err != nil {
		return fmt.Errorf("failed to show frame in %s: %v", name, err)
	}
	return nil
}

// PollKey waits for a key press. Sub-millisecond timeouts round up to 1ms
// since a zero delay blocks in HighGUI.
func (w *Window) PollKey(timeout time.Duration) (int, bool) {
	delay := int(timeout / time.Millisecond)
	if timeout > 0 && delay == 0 {
		delay = 1
	}
	key := gocv.WaitKey(delay)
	return key, key >= 0
}

func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for name, win := range w.windows {
		if err := win.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close window %s: %v", name, err))
		}
		delete(w.windows, name)
	}
	return errors.Join(errs...)
}

// Recorder writes every shown frame into a video file before passing it on
// to the wrapped display. The writer is opened with the size of the first
// frame.
type Recorder struct {
	monitor.Display
	path   string
	fps    float64
	writer *gocv.VideoWriter
	logger *logger.Logger
}

func NewRecorder(display monitor.Display, path string, fps float64, logger *logger.Logger) *Recorder {
	if fps <= 0 {
		fps = 25
	}
	return &Recorder{Display: display, path: path, fps: fps, logger: logger}
}

func (r *Recorder) Show(name string, f frame.Frame) error {
	mat, release, err := MatOf(f)
	if err != nil {
		return err
	}
	defer release()

	if r.writer == nil {
		writer, err := gocv.VideoWriterFile(r.path, "mp4v", r.fps, mat.Cols(), mat.Rows(), true)
		if err != nil {
			return fmt.Errorf("failed to open video writer %s: %v", r.path, err)
		}
		r.writer = writer
		r.logger.Info("Recording annotated video to %s", r.path)
	}
	if err := r.writer.Write(mat); err != nil {
		return fmt.Errorf("failed to write video frame: %v", err)
	}

	return r.Display.Show(name, f)
}

func (r *Recorder) Close() error {
	if r.writer != nil {
		if err := r.writer.Close(); err != nil {
			r.logger.Warning("Failed to close video writer: %v", err)
		}
		r.writer = nil
	}
	return r.Display.Close()
}

// Snapshot saves the last shown frame to path when closed.
type Snapshot struct {
	monitor.Display
	path   string
	last   gocv.Mat
	logger *logger.Logger
}

func NewSnapshot(display monitor.Display, path string, logger *logger.Logger) *Snapshot {
	return &Snapshot{Display: display, path: path, last: gocv.NewMat(), logger: logger}
}

func (s *Snapshot) Show(name string, f frame.Frame) error {
	mat, release, err := MatOf(f)
	if err != nil {
		return err
	}
	defer release()

	if err := mat.CopyTo(&s.last); err != nil {
		return fmt.Errorf("failed to keep snapshot frame: %v", err)
	}
	return s.Display.Show(name, f)
}

func (s *Snapshot) Close() error {
	defer s.last.Close()
	if !s.last.Empty() {
		if gocv.IMWrite(s.path, s.last) {
			s.logger.Info("Saved annotated image to %s", filepath.Clean(s.path))
		} else {
			s.logger.Warning("Failed to save annotated image to %s", s.path)
		}
	}
	return s.Display.Close()
}
