package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"helmetwatch/internal/config"
	"helmetwatch/internal/helmet"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/repository/sqlite"
	"helmetwatch/internal/route"
	"helmetwatch/internal/service"
	"helmetwatch/internal/service/ai"
	"helmetwatch/internal/service/storage"
	"helmetwatch/internal/service/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	detector   ai.Detector
	hubService *websocket.HubService
	manager    *service.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	labels, palette, err := helmet.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	detector, err := ai.NewDetector(cfg, labels.Len(), log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load model %s: %w", cfg.ModelPath, err)
	}

	violations := sqlite.NewViolationRepository(db)
	hub := websocket.NewHubService(log)

	store, err := storage.NewViolationStore(cfg.ViolationDirectory, violations, hub, log)
	if err != nil {
		detector.Close()
		db.Close()
		return nil, err
	}

	mng := service.NewManager(cfg, detector, labels, palette, store, hub,
		violations, sqlite.NewSessionRepository(db), sqlite.NewSettingsRepository(db), log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		detector:   detector,
		hubService: hub,
		manager:    mng,
	}, nil
}

// Run serves HTTP until SIGINT or SIGTERM, then stops detection and
// releases the model and database.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.hubService.Run(ctx)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: route.SetupRoutes(a.manager, a.config, a.logger),
	}

	fmt.Printf("🚀 Helmet Detection Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("🔑 Password: %s\n", a.config.Password)
	fmt.Printf("📁 Violations: %s\n", a.config.ViolationDirectory)
	fmt.Printf("🤖 AI Model: %s (%s)\n", a.config.ModelPath, a.config.DetectorBackend)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = server.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	a.manager.Stop()
	if cerr := a.detector.Close(); cerr != nil {
		a.logger.Warning("Failed to release detector: %v", cerr)
	}
	if cerr := a.db.Close(); cerr != nil {
		a.logger.Warning("Failed to close database: %v", cerr)
	}
	a.logger.Close()
	return err
}
