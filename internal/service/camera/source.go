package camera

import (
	"context"
	"fmt"
	"strconv"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/service/monitor"

	"gocv.io/x/gocv"
)

// Capture reads frames from a gocv.VideoCapture. It reuses one Mat, so each
// frame is only valid until the next Read.
type Capture struct {
	name    string
	capture *gocv.VideoCapture
	mat     gocv.Mat
	frame   *MatFrame
}

// OpenDevice opens the camera at the given index.
func OpenDevice(index int) (*Capture, error) {
	return open(strconv.Itoa(index), index)
}

// OpenFile opens a video file or stream URL.
func OpenFile(path string) (*Capture, error) {
	return open(path, path)
}

func open(name string, device interface{}) (*Capture, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %v", name, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("cannot open %s", name)
	}

	mat := gocv.NewMat()
	return &Capture{
		name:    name,
		capture: capture,
		mat:     mat,
		frame:   NewMatFrame(mat),
	}, nil
}

func (c *Capture) Name() string {
	return c.name
}

// Read grabs the next frame. A failed grab or an empty frame ends the stream.
func (c *Capture) Read() (frame.Frame, error) {
	if ok := c.capture.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, monitor.ErrEndOfStream
	}
	c.frame.mat = c.mat
	return c.frame, nil
}

func (c *Capture) Close() error {
	c.mat.Close()
	return c.capture.Close()
}

// DeviceOpener opens the camera at index when the loop starts.
func DeviceOpener(index int) monitor.Opener {
	return monitor.OpenerFunc(func(context.Context) (monitor.Source, error) {
		source, err := OpenDevice(index)
		if err != nil {
			return nil, err
		}
		return source, nil
	})
}

// FileOpener opens a video file when the loop starts.
func FileOpener(path string) monitor.Opener {
	return monitor.OpenerFunc(func(context.Context) (monitor.Source, error) {
		source, err := OpenFile(path)
		if err != nil {
			return nil, err
		}
		return source, nil
	})
}

// Still is a single image served as a one frame stream.
type Still struct {
	mat  gocv.Mat
	done bool
}

// OpenStill reads the image at path.
func OpenStill(path string) (*Still, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("cannot read image %s", path)
	}
	return &Still{mat: mat}, nil
}

func (s *Still) Read() (frame.Frame, error) {
	if s.done {
		return nil, monitor.ErrEndOfStream
	}
	s.done = true
	return NewMatFrame(s.mat), nil
}

func (s *Still) Close() error {
	return s.mat.Close()
}

// StillOpener opens an image file when the loop starts.
func StillOpener(path string) monitor.Opener {
	return monitor.OpenerFunc(func(context.Context) (monitor.Source, error) {
		source, err := OpenStill(path)
		if err != nil {
			return nil, err
		}
		return source, nil
	})
}

// OpenerFor maps a camera source setting to an opener: integers select a
// local device, anything else is opened as a file or stream URL.
func OpenerFor(source string) monitor.Opener {
	if index, err := strconv.Atoi(source); err == nil {
		return DeviceOpener(index)
	}
	return FileOpener(source)
}
