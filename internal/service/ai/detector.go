// Package ai provides the helmet detectors: YOLOv8 models run either through
// the OpenCV DNN module or through ONNX Runtime.
package ai

import (
	"fmt"
	"strings"

	"helmetwatch/internal/config"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/service/monitor"
)

const (
	BackendOpenCV = "opencv"
	BackendONNX   = "onnxruntime"
)

// Detector is a monitor.Detector holding native resources.
type Detector interface {
	monitor.Detector
	Close() error
}

// NewDetector creates the detector selected by cfg.DetectorBackend.
func NewDetector(cfg *config.Config, classes int, logger *logger.Logger) (Detector, error) {
	var (
		detector Detector
		err      error
	)
	switch strings.ToLower(cfg.DetectorBackend) {
	case "", BackendOpenCV:
		detector, err = NewDNNDetector(cfg.ModelPath, cfg.InputSize, cfg.NMSThreshold, logger)
	case BackendONNX:
		detector, err = NewONNXDetector(cfg.ModelPath, cfg.OnnxRuntimeLib, cfg.InputSize, classes, cfg.NMSThreshold, logger)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.DetectorBackend)
	}
	if err != nil {
		return nil, err
	}
	return detector, nil
}
