package repository

import (
	"errors"

	"helmetwatch/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ViolationRepository defines the interface for violation data operations.
type ViolationRepository interface {
	// Create operations
	Insert(v *model.Violation) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Violation, error)
	GetByFilename(filename string) (*model.Violation, error)
	GetAll(filter *model.ViolationFilter) ([]model.Violation, error)
	Count(filter *model.ViolationFilter) (int, error)
	Stats() (*model.ViolationStats, error)
	CountByImagePath(path string) (int, error)

	// Update operations
	Update(id int64, update model.ViolationUpdate) (*model.Violation, error)

	// Delete operations
	Delete(id int64) error
}

// SessionRepository defines the interface for detection session operations.
type SessionRepository interface {
	Start(s *model.Session) error
	Finish(id, status string, frames, detections int) error
	Active() (*model.Session, error)
	StopActive() (int64, error)
}

// SettingsRepository stores key/value system settings.
type SettingsRepository interface {
	All() (map[string]string, error)
	Get(key string) (string, error)
	Upsert(values map[string]string) error
}
