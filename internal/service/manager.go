package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"helmetwatch/internal/config"
	"helmetwatch/internal/dto"
	"helmetwatch/internal/frame"
	"helmetwatch/internal/helmet"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
	"helmetwatch/internal/repository"
	"helmetwatch/internal/service/camera"
	"helmetwatch/internal/service/monitor"
	"helmetwatch/internal/service/storage"
	"helmetwatch/internal/service/websocket"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRunning = errors.New("detection is already running")
	ErrNotRunning     = errors.New("detection is not running")
	ErrInvalidImage   = errors.New("invalid image")
	ErrInvalidSetting = errors.New("invalid setting")
)

// Setting keys understood by the manager.
const (
	SettingCameraSource = "camera_source"
	SettingConfidence   = "confidence_threshold"
)

// Camera and health states reported by Status.
const (
	CameraConnected    = "connected"
	CameraDisconnected = "disconnected"
	CameraError        = "error"
	HealthGood         = "good"
)

// OpenerFactory maps a camera source to a capture opener.
type OpenerFactory func(source string) monitor.Opener

type detectionRun struct {
	session *model.Session
	loop    *monitor.Loop
	cancel  context.CancelFunc
	done    chan struct{}
}

// Manager owns the detector and coordinates uploads and live detection
// sessions for the web server.
type Manager struct {
	cfg        *config.Config
	detector   monitor.Detector
	labels     helmet.Labels
	palette    helmet.Palette
	store      *storage.ViolationStore
	hub        *websocket.HubService
	violations repository.ViolationRepository
	sessions   repository.SessionRepository
	settings   repository.SettingsRepository
	logger     *logger.Logger
	openers    OpenerFactory

	mu     sync.Mutex
	run    *detectionRun
	status dto.SystemStatus
}

func NewManager(cfg *config.Config, detector monitor.Detector, labels helmet.Labels, palette helmet.Palette,
	store *storage.ViolationStore, hub *websocket.HubService, violations repository.ViolationRepository,
	sessions repository.SessionRepository, settings repository.SettingsRepository, logger *logger.Logger) *Manager {
	m := &Manager{
		cfg:        cfg,
		detector:   detector,
		labels:     labels,
		palette:    palette,
		store:      store,
		hub:        hub,
		violations: violations,
		sessions:   sessions,
		settings:   settings,
		logger:     logger,
		openers:    camera.OpenerFor,
		status: dto.SystemStatus{
			CameraStatus: CameraDisconnected,
			SystemHealth: HealthGood,
			UpdatedAt:    time.Now(),
		},
	}

	if stale, err := sessions.Active(); err == nil {
		logger.Warning("Session %s on camera %s was interrupted at %s", stale.ID, stale.CameraSource,
			stale.SessionStart.Local().Format(time.RFC3339))
	} else if !errors.Is(err, repository.ErrNotFound) {
		logger.Warning("Failed to look up active session: %v", err)
	}
	if n, err := sessions.StopActive(); err != nil {
		logger.Warning("Failed to close stale sessions: %v", err)
	} else if n > 0 {
		logger.Info("Closed %d stale detection session(s)", n)
	}
	return m
}

// SetOpenerFactory replaces how camera sources are opened.
func (m *Manager) SetOpenerFactory(f OpenerFactory) {
	m.openers = f
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.hub
}

func (m *Manager) GetViolationRepository() repository.ViolationRepository {
	return m.violations
}

func (m *Manager) GetViolationStore() *storage.ViolationStore {
	return m.store
}

// threshold returns the stored confidence threshold, or the configured one.
func (m *Manager) threshold() float64 {
	if value, err := m.settings.Get(SettingConfidence); err == nil {
		if t, err := strconv.ParseFloat(value, 64); err == nil {
			return t
		}
	}
	return m.cfg.ConfidenceThreshold
}

// defaultCamera returns the stored camera source, or the configured index.
func (m *Manager) defaultCamera() string {
	if value, err := m.settings.Get(SettingCameraSource); err == nil && value != "" {
		return value
	}
	return strconv.Itoa(m.cfg.CameraIndex)
}

// DetectUpload stores an uploaded image, runs detection on it and saves an
// annotated copy next to it. Violator crops get a per-upload name prefix so
// uploads never overwrite each other's crops.
func (m *Manager) DetectUpload(ctx context.Context, filename string, r io.Reader) (*dto.DetectResponse, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	pic, err := frame.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if err := os.MkdirAll(m.cfg.UploadDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	id := shortID(uuid.NewString())
	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." {
		base = "upload.jpg"
	}
	uploadName := id + "_" + base
	if err := os.WriteFile(filepath.Join(m.cfg.UploadDirectory, uploadName), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save upload: %w", err)
	}

	detections, err := m.detector.Detect(ctx, pic, m.threshold())
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	annotator := monitor.NewAnnotator(m.labels, m.palette, monitor.Namer{Prefix: id + "_"},
		m.store.ForSession("", "upload"), m.logger)
	result, err := annotator.Annotate(ctx, pic, detections)
	if err != nil {
		return nil, err
	}

	annotatedName := "annotated_" + strings.TrimSuffix(uploadName, filepath.Ext(uploadName)) + ".jpg"
	if err := pic.Save(filepath.Join(m.cfg.UploadDirectory, annotatedName)); err != nil {
		return nil, fmt.Errorf("failed to save annotated image: %w", err)
	}

	m.logger.Info("Upload %s: %d detection(s), %d violator(s)", uploadName, len(result.Detections), result.Violations)
	m.recordDetections(len(result.Saved))

	bounds := pic.Bounds()
	return &dto.DetectResponse{
		Upload:     "/uploads/" + uploadName,
		Annotated:  "/uploads/" + annotatedName,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Detections: result.Detections,
		Violations: result.Violations,
		Compliant:  result.Compliant,
		Saved:      result.Saved,
	}, nil
}

// shortID returns the first 12 hex digits of a uuid.
func shortID(id string) string {
	return strings.ReplaceAll(id, "-", "")[:12]
}

// StartDetection opens a new session and runs the detection loop on source
// in the background. An empty source selects the stored default camera.
func (m *Manager) StartDetection(source string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run != nil {
		return nil, ErrAlreadyRunning
	}
	if source == "" {
		source = m.defaultCamera()
	}

	session := &model.Session{ID: uuid.NewString(), CameraSource: source, Status: model.SessionActive}
	if err := m.sessions.Start(session); err != nil {
		return nil, err
	}

	// every session numbers its crops from 1, so names carry the session
	namer := func(time.Time) monitor.Namer {
		return monitor.Namer{Prefix: shortID(session.ID) + "_"}
	}

	run := &detectionRun{session: session, done: make(chan struct{})}
	run.loop = monitor.NewLoop(monitor.LoopOptions{
		Opener:    m.openers(source),
		Detector:  m.detector,
		Display:   websocket.NewStreamDisplay(m.hub, source, m.cfg.StreamInterval),
		Sink:      m.store.ForSession(session.ID, source),
		Labels:    m.labels,
		Palette:   m.palette,
		Logger:    m.logger,
		Threshold: m.threshold(),
		Namer:     namer,
		OnFrame: func(n int, result monitor.FrameResult) {
			m.onFrame(session.SessionStart, n, result)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	run.cancel = cancel
	m.run = run

	m.status.CameraStatus = CameraConnected
	m.status.SystemHealth = HealthGood
	m.status.ProcessingFPS = 0
	m.status.Frames = 0
	m.status.UpdatedAt = time.Now()

	go m.runLoop(ctx, run)

	m.logger.Info("Detection session %s started on camera %s", session.ID, source)
	return session, nil
}

func (m *Manager) runLoop(ctx context.Context, run *detectionRun) {
	defer close(run.done)

	summary, err := run.loop.Run(ctx)

	status := model.SessionStopped
	cameraStatus := CameraDisconnected
	if err != nil {
		status = model.SessionFailed
		cameraStatus = CameraError
		m.logger.Error("Detection session %s failed: %v", run.session.ID, err)
	}
	if ferr := m.sessions.Finish(run.session.ID, status, summary.Frames, summary.Violations); ferr != nil {
		m.logger.Error("Failed to finish session %s: %v", run.session.ID, ferr)
	}

	m.mu.Lock()
	if m.run == run {
		m.run = nil
	}
	m.status.CameraStatus = cameraStatus
	m.status.ProcessingFPS = 0
	m.status.UpdatedAt = time.Now()
	m.mu.Unlock()

	m.logger.Info("Detection session %s ended (%s): %d frame(s), %d violator(s)",
		run.session.ID, summary.Reason, summary.Frames, summary.Violations)
}

func (m *Manager) onFrame(start time.Time, n int, result monitor.FrameResult) {
	m.mu.Lock()
	m.status.Frames = n
	if elapsed := time.Since(start).Seconds(); elapsed > 0 {
		m.status.ProcessingFPS = float64(n) / elapsed
	}
	m.status.UpdatedAt = time.Now()
	m.mu.Unlock()

	m.recordDetections(len(result.Saved))
}

func (m *Manager) recordDetections(saved int) {
	if saved == 0 {
		return
	}
	now := time.Now()

	m.mu.Lock()
	m.status.DetectionCount += saved
	m.status.LastDetection = &now
	status := m.status
	m.mu.Unlock()

	m.hub.Publish(websocket.EventStatus, "", status)
}

// StopDetection cancels the running loop and waits for it to release the
// camera.
func (m *Manager) StopDetection() error {
	m.mu.Lock()
	run := m.run
	m.mu.Unlock()

	if run == nil {
		return ErrNotRunning
	}
	run.cancel()
	<-run.done
	return nil
}

// ChangeCamera stores source as the default camera. A running session is
// restarted on the new source.
func (m *Manager) ChangeCamera(source string) (*model.Session, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: camera source is required", ErrInvalidSetting)
	}
	if err := m.settings.Upsert(map[string]string{SettingCameraSource: source}); err != nil {
		return nil, err
	}

	if err := m.StopDetection(); err != nil {
		if errors.Is(err, ErrNotRunning) {
			return nil, nil
		}
		return nil, err
	}
	return m.StartDetection(source)
}

// HealthCheck records the reported system health.
func (m *Manager) HealthCheck(health string) string {
	if health == "" {
		health = HealthGood
	}
	m.mu.Lock()
	m.status.SystemHealth = health
	m.status.UpdatedAt = time.Now()
	m.mu.Unlock()
	return health
}

// ActiveSession returns the running session, or nil.
func (m *Manager) ActiveSession() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run == nil {
		return nil
	}
	session := *m.run.session
	session.Frames = m.status.Frames
	return &session
}

// Status returns a snapshot of the live metrics.
func (m *Manager) Status() dto.SystemStatus {
	m.mu.Lock()
	status := m.status
	status.LoopState = monitor.StateIdle.String()
	if m.run != nil {
		status.LoopState = m.run.loop.State().String()
	}
	m.mu.Unlock()

	status.Viewers = m.hub.GetClientCount()
	return status
}

// Settings returns the stored settings.
func (m *Manager) Settings() (map[string]string, error) {
	return m.settings.All()
}

// UpdateSettings validates and stores values, returning every setting.
func (m *Manager) UpdateSettings(values map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no settings to update", ErrInvalidSetting)
	}
	if value, ok := values[SettingConfidence]; ok {
		t, err := strconv.ParseFloat(value, 64)
		if err != nil || t < 0 || t > 1 {
			return nil, fmt.Errorf("%w: %s must be a number between 0 and 1", ErrInvalidSetting, SettingConfidence)
		}
	}
	if value, ok := values[SettingCameraSource]; ok && value == "" {
		return nil, fmt.Errorf("%w: %s must not be empty", ErrInvalidSetting, SettingCameraSource)
	}

	if err := m.settings.Upsert(values); err != nil {
		return nil, err
	}
	return m.settings.All()
}

// Stop ends any running session.
func (m *Manager) Stop() {
	if err := m.StopDetection(); err != nil && !errors.Is(err, ErrNotRunning) {
		m.logger.Error("Failed to stop detection: %v", err)
	}
	m.logger.Info("Manager stopped")
}
