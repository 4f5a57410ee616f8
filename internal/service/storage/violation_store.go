package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
	"helmetwatch/internal/repository"
	"helmetwatch/internal/service/monitor"
	"helmetwatch/internal/service/websocket"
)

// Publisher pushes events to live viewers.
type Publisher interface {
	Publish(eventType, camera string, payload interface{})
}

// ViolationEvent is published for every stored crop.
type ViolationEvent struct {
	ID         int64   `json:"id,omitempty"`
	Filename   string  `json:"filename"`
	URL        string  `json:"url"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"box"`
}

// ViolationStore writes violator crops to a directory and records each one
// in the violation repository. It implements monitor.CropSink.
type ViolationStore struct {
	dir       string
	urlPrefix string
	repo      repository.ViolationRepository
	publisher Publisher
	logger    *logger.Logger

	sessionID string
	camera    string
}

// NewViolationStore creates dir if needed. repo and publisher may be nil.
func NewViolationStore(dir string, repo repository.ViolationRepository, publisher Publisher, logger *logger.Logger) (*ViolationStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create violation directory: %w", err)
	}
	return &ViolationStore{
		dir:       dir,
		urlPrefix: "/violations/",
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Dir returns the directory crops are written to.
func (s *ViolationStore) Dir() string {
	return s.dir
}

// Resolve maps path to the form Save records for files inside the store
// directory. A bare filename is taken relative to the directory. ok is false
// for anything that resolves outside of it.
func (s *ViolationStore) Resolve(path string) (resolved string, ok bool) {
	if path == "" {
		return "", false
	}
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(s.dir, path)
	}

	root, err := filepath.Abs(s.dir)
	if err != nil {
		return "", false
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(s.dir, rel), true
}

// Remove deletes the crop at path once no violation references it anymore.
// Paths outside the store directory are never touched.
func (s *ViolationStore) Remove(path string) error {
	resolved, ok := s.Resolve(path)
	if !ok {
		s.logger.Warning("Refusing to delete %s: outside %s", path, s.dir)
		return nil
	}

	if s.repo != nil {
		refs, err := s.repo.CountByImagePath(resolved)
		if err != nil {
			return err
		}
		if refs > 0 {
			s.logger.Info("Keeping %s: still referenced by %d violation(s)", resolved, refs)
			return nil
		}
	}

	if err := os.Remove(resolved); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", resolved, err)
	}
	return nil
}

// ForSession returns a store that tags records with a session and camera.
func (s *ViolationStore) ForSession(sessionID, camera string) *ViolationStore {
	scoped := *s
	scoped.sessionID = sessionID
	scoped.camera = camera
	return &scoped
}

// Save writes the crop, overwriting any file of the same name. Failing to
// record it afterwards is only logged since the crop itself is on disk.
func (s *ViolationStore) Save(ctx context.Context, crop monitor.Crop) error {
	path := filepath.Join(s.dir, crop.Filename)
	if err := os.WriteFile(path, crop.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	event := ViolationEvent{
		Filename:   crop.Filename,
		URL:        s.urlPrefix + crop.Filename,
		Label:      crop.Label,
		Confidence: crop.Confidence,
		Box:        [4]int{crop.Region.Min.X, crop.Region.Min.Y, crop.Region.Max.X, crop.Region.Max.Y},
	}

	if s.repo != nil {
		v := &model.Violation{
			SessionID:           s.sessionID,
			ViolationTime:       time.Now(),
			Filename:            crop.Filename,
			ImagePath:           path,
			DetectionConfidence: crop.Confidence,
			X1:                  crop.Region.Min.X,
			Y1:                  crop.Region.Min.Y,
			X2:                  crop.Region.Max.X,
			Y2:                  crop.Region.Max.Y,
			CameraSource:        s.camera,
		}
		if id, err := s.repo.Insert(v); err != nil {
			s.logger.Error("Error saving violation %s to database: %v", crop.Filename, err)
		} else {
			event.ID = id
		}
	}

	if s.publisher != nil {
		s.publisher.Publish(websocket.EventViolation, s.camera, event)
	}
	return nil
}
