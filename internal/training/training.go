// Package training builds and runs the external YOLO training command.
package training

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"helmetwatch/internal/helmet"
)

// Options mirror the arguments of `yolo detect train`.
type Options struct {
	Data   string // dataset data.yaml
	Model  string
	Epochs int
	ImgSz  int
	Batch  int
	Name   string
	// Project is the output directory; empty keeps the tool default.
	Project string
}

// DefaultOptions returns the settings the helmet model is trained with.
func DefaultOptions(data string) Options {
	return Options{
		Data:   data,
		Model:  "yolov8n.pt",
		Epochs: 50,
		ImgSz:  640,
		Batch:  8,
		Name:   "helmet-detection",
	}
}

// Validate checks the options and that the dataset declares class names.
func (o Options) Validate() (helmet.Labels, error) {
	if o.Data == "" {
		return helmet.Labels{}, fmt.Errorf("dataset path is required")
	}
	if o.Epochs <= 0 || o.ImgSz <= 0 || o.Batch <= 0 {
		return helmet.Labels{}, fmt.Errorf("epochs, imgsz and batch must be positive")
	}
	labels, err := helmet.LoadLabels(o.Data)
	if err != nil {
		return helmet.Labels{}, err
	}
	if labels.Len() == 0 {
		return helmet.Labels{}, fmt.Errorf("%s declares no class names", o.Data)
	}
	return labels, nil
}

// Args returns the command line arguments after the `yolo` executable.
func (o Options) Args() []string {
	args := []string{
		"detect", "train",
		"data=" + o.Data,
		"epochs=" + strconv.Itoa(o.Epochs),
		"imgsz=" + strconv.Itoa(o.ImgSz),
		"batch=" + strconv.Itoa(o.Batch),
		"name=" + o.Name,
		"model=" + o.Model,
	}
	if o.Project != "" {
		args = append(args, "project="+o.Project)
	}
	return args
}

// Command builds the training command for the given executable.
func (o Options) Command(ctx context.Context, executable string, stdout, stderr io.Writer) *exec.Cmd {
	cmd := exec.CommandContext(ctx, executable, o.Args()...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = os.Environ()
	return cmd
}
