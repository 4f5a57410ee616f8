package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/helmet"
	"helmetwatch/internal/logger"
)

// State of the detection loop.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// StopReason tells why a run ended.
type StopReason string

const (
	StopEndOfStream StopReason = "end_of_stream"
	StopQuit        StopReason = "quit"
	StopCancelled   StopReason = "cancelled"
	StopFailed      StopReason = "failed"
)

// DefaultKeyWait is the key poll timeout used between frames.
const DefaultKeyWait = time.Millisecond

// Summary reports the outcome of one run.
type Summary struct {
	Frames     int
	Violations int
	Reason     StopReason
	Started    time.Time
	Stopped    time.Time
}

// LoopOptions configures a Loop.
type LoopOptions struct {
	Opener   Opener
	Detector Detector
	Display  Display
	Sink     CropSink
	Labels   helmet.Labels
	Palette  helmet.Palette
	Logger   *logger.Logger

	Window    string
	Threshold float64
	KeyWait   time.Duration // key poll timeout per frame, DefaultKeyWait if zero
	// WaitForKey makes every frame stay on screen until a key is pressed.
	WaitForKey bool
	// Namer builds crop names for a run. Nil keeps violator_<N>.jpg.
	Namer func(start time.Time) Namer
	// OnFrame, if set, is called after each frame has been shown.
	OnFrame func(n int, result FrameResult)
}

// Loop is the single-threaded capture → detect → annotate → display cycle.
// A Loop may be run again after it stops; every run starts a fresh counter.
type Loop struct {
	opts  LoopOptions
	state atomic.Int32
}

func NewLoop(opts LoopOptions) *Loop {
	if opts.Window == "" {
		opts.Window = helmet.WindowName
	}
	if opts.KeyWait <= 0 {
		opts.KeyWait = DefaultKeyWait
	}
	if opts.WaitForKey {
		opts.KeyWait = 0
	}
	if opts.Namer == nil {
		opts.Namer = func(time.Time) Namer { return Namer{} }
	}
	return &Loop{opts: opts}
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run executes the loop until the stream ends, the quit key is pressed, ctx
// is cancelled, or the detector fails. Cancellation is only observed at the
// key poll point of each iteration. The source and display are always
// released before Run returns.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	o := l.opts
	summary := Summary{Started: time.Now()}

	l.setState(StateInitializing)
	defer l.setState(StateStopped)
	defer func() {
		if err := o.Display.Close(); err != nil {
			o.Logger.Warning("Failed to release display: %v", err)
		}
	}()

	source, err := o.Opener.Open(ctx)
	if err != nil {
		o.Logger.Error("Cannot access camera: %v", err)
		summary.Reason = StopFailed
		summary.Stopped = time.Now()
		return summary, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			o.Logger.Warning("Failed to release capture source: %v", err)
		}
		o.Logger.Info("Capture closed. Detection stopped after %d frame(s), %d violator(s) saved",
			summary.Frames, summary.Violations)
	}()

	annotator := NewAnnotator(o.Labels, o.Palette, o.Namer(summary.Started), o.Sink, o.Logger)

	l.setState(StateRunning)
	o.Logger.Info("Starting real-time helmet detection. Press 'Q' to quit.")

	for {
		f, err := source.Read()
		if err != nil {
			if !errors.Is(err, ErrEndOfStream) {
				o.Logger.Warning("Frame acquisition failed: %v", err)
			}
			summary.Reason = StopEndOfStream
			break
		}

		quit, err := l.step(ctx, annotator, f, summary.Frames+1)
		summary.Frames++
		summary.Violations = annotator.Count()
		if err != nil {
			summary.Reason = StopFailed
			summary.Stopped = time.Now()
			return summary, err
		}
		if quit {
			summary.Reason = StopQuit
			break
		}
		if ctx.Err() != nil {
			summary.Reason = StopCancelled
			break
		}
	}

	summary.Stopped = time.Now()
	return summary, nil
}

// step processes one frame and reports whether the quit key was pressed.
func (l *Loop) step(ctx context.Context, annotator *Annotator, f frame.Frame, n int) (bool, error) {
	o := l.opts

	detections, err := o.Detector.Detect(ctx, f, o.Threshold)
	if err != nil {
		return false, fmt.Errorf("detection failed on frame %d: %w", n, err)
	}

	result, err := annotator.Annotate(ctx, f, detections)
	if err != nil {
		return false, fmt.Errorf("annotation failed on frame %d: %w", n, err)
	}

	if err := o.Display.Show(o.Window, f); err != nil {
		return false, fmt.Errorf("display failed on frame %d: %w", n, err)
	}
	if o.OnFrame != nil {
		o.OnFrame(n, result)
	}

	key, ok := o.Display.PollKey(o.KeyWait)
	return ok && IsQuitKey(key), nil
}
