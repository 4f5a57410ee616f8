package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
	"helmetwatch/internal/service/camera"

	"gocv.io/x/gocv"
)

// DNNDetector runs a YOLOv8 ONNX export through the OpenCV DNN module.
type DNNDetector struct {
	net       gocv.Net
	mu        sync.Mutex
	inputSize int
	iou       float64
	logger    *logger.Logger
}

// NewDNNDetector loads the model at modelPath.
func NewDNNDetector(modelPath string, inputSize int, iou float64, logger *logger.Logger) (*DNNDetector, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", modelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	logger.Info("Detection network loaded from %s", modelPath)
	return &DNNDetector{net: net, inputSize: inputSize, iou: iou, logger: logger}, nil
}

func (d *DNNDetector) Detect(ctx context.Context, f frame.Frame, threshold float64) ([]model.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := f.Bounds()
	if bounds.Empty() {
		return nil, nil
	}

	mat, release, err := camera.MatOf(f)
	if err != nil {
		return nil, err
	}
	defer release()

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(d.inputSize, d.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %v", err)
	}

	geometry := Geometry{InputSize: d.inputSize, Width: bounds.Dx(), Height: bounds.Dy()}
	candidates, err := ParseYOLOv8(data, output.Size(), geometry, threshold)
	if err != nil {
		return nil, err
	}
	return Suppress(candidates, threshold, d.iou), nil
}

func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
