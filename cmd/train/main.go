package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"helmetwatch/internal/config"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/training"
)

func main() {
	defaults := training.DefaultOptions("")

	data := flag.String("data", "", "dataset data.yaml (defaults to LABELS_PATH)")
	model := flag.String("model", defaults.Model, "base model weights")
	epochs := flag.Int("epochs", defaults.Epochs, "training epochs")
	imgsz := flag.Int("imgsz", defaults.ImgSz, "training image size")
	batch := flag.Int("batch", defaults.Batch, "batch size")
	name := flag.String("name", defaults.Name, "run name")
	project := flag.String("project", "", "output directory for training runs")
	yolo := flag.String("yolo", "yolo", "ultralytics CLI executable")
	dryRun := flag.Bool("dry-run", false, "print the command without running it")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewLogger(cfg)
	defer log.Close()

	opts := training.Options{
		Data:    *data,
		Model:   *model,
		Epochs:  *epochs,
		ImgSz:   *imgsz,
		Batch:   *batch,
		Name:    *name,
		Project: *project,
	}
	if opts.Data == "" {
		opts.Data = cfg.LabelsPath
	}

	labels, err := opts.Validate()
	if err != nil {
		log.Error("Invalid training options: %v", err)
		os.Exit(1)
	}
	log.Info("Training %s on %s (classes: %s)", opts.Model, opts.Data, strings.Join(labels.Names(), ", "))

	if *dryRun {
		fmt.Println(*yolo, strings.Join(opts.Args(), " "))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := opts.Command(ctx, *yolo, os.Stdout, os.Stderr).Run(); err != nil {
		log.Error("Training failed: %v", err)
		os.Exit(1)
	}
	log.Info("✅ Training complete: %s", opts.Name)
}
