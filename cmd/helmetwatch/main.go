package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"helmetwatch/internal/config"
	"helmetwatch/internal/helmet"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/repository"
	"helmetwatch/internal/repository/sqlite"
	"helmetwatch/internal/service/ai"
	"helmetwatch/internal/service/camera"
	"helmetwatch/internal/service/monitor"
	"helmetwatch/internal/service/storage"
)

func main() {
	choice := flag.String("mode", "", "1/image, 2/video or 3/webcam; asked interactively when empty")
	source := flag.String("source", "", "image or video path for modes 1 and 2")
	record := flag.Bool("record", false, "record violator crops in the database at DB_PATH")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewLogger(cfg)
	defer log.Close()

	if err := run(cfg, log, *choice, *source, *record); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, choice, source string, record bool) error {
	in := bufio.NewReader(os.Stdin)

	if choice == "" {
		fmt.Println("\n🚦 Helmet Detection System")
		fmt.Println("1️⃣  Detect on Image")
		fmt.Println("2️⃣  Detect on Video")
		fmt.Println("3️⃣  Real-Time Detection (Webcam)")
		fmt.Println()
		choice = prompt(in, "Enter choice (1/2/3): ")
	}

	mode, ok := modes[strings.ToLower(choice)]
	if !ok {
		return fmt.Errorf("invalid choice %q, please enter 1, 2, or 3", choice)
	}
	if mode != modeWebcam && source == "" {
		source = prompt(in, fmt.Sprintf("Enter full %s path: ", mode))
	}

	labels, palette, err := helmet.FromConfig(cfg)
	if err != nil {
		return err
	}
	log.Info("Model classes: %s", strings.Join(labels.Names(), ", "))

	detector, err := ai.NewDetector(cfg, labels.Len(), log)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", cfg.ModelPath, err)
	}
	defer detector.Close()

	var violations repository.ViolationRepository
	if record {
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer db.Close()
		violations = sqlite.NewViolationRepository(db)
	}

	store, err := storage.NewViolationStore(cfg.ViolationDirectory, violations, nil, log)
	if err != nil {
		return err
	}

	opts := monitor.LoopOptions{
		Detector:  detector,
		Sink:      store.ForSession("", mode.String()),
		Labels:    labels,
		Palette:   palette,
		Logger:    log,
		Threshold: cfg.ConfidenceThreshold,
	}
	if cfg.QualifiedNames {
		opts.Namer = monitor.QualifiedNamer
	}

	if mode != modeWebcam {
		if err := os.MkdirAll(cfg.OutputDirectory, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	window := camera.NewWindow()
	switch mode {
	case modeImage:
		log.Info("🖼️ Detecting helmets in: %s", source)
		opts.Opener = camera.StillOpener(source)
		opts.Display = camera.NewSnapshot(window, outputPath(cfg, source, ""), log)
		opts.WaitForKey = true
	case modeVideo:
		log.Info("🎥 Processing video: %s", source)
		opts.Opener = camera.FileOpener(source)
		opts.Display = camera.NewRecorder(window, outputPath(cfg, source, ".mp4"), 0, log)
	case modeWebcam:
		log.Info("📸 Starting real-time helmet detection on camera %d", cfg.CameraIndex)
		opts.Opener = camera.DeviceOpener(cfg.CameraIndex)
		opts.Display = window
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := monitor.NewLoop(opts).Run(ctx)
	if errors.Is(err, monitor.ErrDeviceUnavailable) {
		return fmt.Errorf("❌ cannot access %s: %w", mode, err)
	}
	if err != nil {
		return err
	}

	switch mode {
	case modeWebcam:
		log.Info("👋 Webcam closed. Detection stopped.")
	default:
		log.Info("✅ Detection on %s complete (%d frame(s), %s). Results saved in '%s'.",
			mode, summary.Frames, summary.Reason, cfg.OutputDirectory)
	}
	if summary.Violations > 0 {
		log.Info("%d violator crop(s) saved in %s", summary.Violations, store.Dir())
	}
	return nil
}

type runMode int

const (
	modeImage runMode = iota + 1
	modeVideo
	modeWebcam
)

func (m runMode) String() string {
	switch m {
	case modeImage:
		return "image"
	case modeVideo:
		return "video"
	default:
		return "webcam"
	}
}

var modes = map[string]runMode{
	"1": modeImage, "image": modeImage,
	"2": modeVideo, "video": modeVideo,
	"3": modeWebcam, "webcam": modeWebcam,
}

func prompt(in *bufio.Reader, text string) string {
	fmt.Print(text)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// outputPath places the annotated copy of source in OUTPUT_DIR. An empty ext
// keeps the source extension.
func outputPath(cfg *config.Config, source, ext string) string {
	base := filepath.Base(source)
	if ext != "" {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + ext
	}
	return filepath.Join(cfg.OutputDirectory, base)
}
