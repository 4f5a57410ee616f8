package ai

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXDetector runs a YOLOv8 ONNX export through ONNX Runtime without
// OpenCV. It is used when the OpenCV build lacks a usable DNN module.
type ONNXDetector struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	output    *ort.Tensor[float32]
	mu        sync.Mutex
	inputSize int
	classes   int
	iou       float64
	logger    *logger.Logger
}

// NewONNXDetector initializes the runtime from libPath and creates a session
// for a model with the given number of classes.
func NewONNXDetector(modelPath, libPath string, inputSize, classes int, iou float64, logger *logger.Logger) (*ONNXDetector, error) {
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(runtime.NumCPU())

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputSize), int64(inputSize)))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+classes), anchorCount(inputSize)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		options)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	logger.Info("ONNX Runtime session created for %s", modelPath)
	return &ONNXDetector{
		session:   session,
		input:     input,
		output:    output,
		inputSize: inputSize,
		classes:   classes,
		iou:       iou,
		logger:    logger,
	}, nil
}

// anchorCount is the number of YOLOv8 anchors for a square input: one per
// cell of the stride 8, 16 and 32 grids.
func anchorCount(inputSize int) int64 {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		cells := inputSize / stride
		n += cells * cells
	}
	return int64(n)
}

func (d *ONNXDetector) Detect(ctx context.Context, f frame.Frame, threshold float64) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := f.Bounds()
	if bounds.Empty() {
		return nil, nil
	}

	img, err := f.Image()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	fillInput(d.input.GetData(), img, d.inputSize)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	shape := d.output.GetShape()
	dims := make([]int, len(shape))
	for i, v := range shape {
		dims[i] = int(v)
	}

	geometry := Geometry{InputSize: d.inputSize, Width: bounds.Dx(), Height: bounds.Dy()}
	candidates, err := ParseYOLOv8(d.output.GetData(), dims, geometry, threshold)
	if err != nil {
		return nil, err
	}
	return Suppress(candidates, threshold, d.iou), nil
}

// fillInput resizes img to size x size and writes it as planar RGB scaled
// to [0,1].
func fillInput(buffer []float32, img image.Image, size int) {
	resized := imaging.Resize(img, size, size, imaging.Linear)
	plane := size * size
	for y := 0; y < size; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < size; x++ {
			i := y*size + x
			buffer[i] = float32(row[x*4]) / 255.0
			buffer[plane+i] = float32(row[x*4+1]) / 255.0
			buffer[2*plane+i] = float32(row[x*4+2]) / 255.0
		}
	}
}

func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	return nil
}
