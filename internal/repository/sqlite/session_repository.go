package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"helmetwatch/internal/model"
	"helmetwatch/internal/repository"
)

// SessionRepository implements repository.SessionRepository for SQLite.
type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Start records a new active session.
func (r *SessionRepository) Start(s *model.Session) error {
	r.db.Lock()
	defer r.db.Unlock()

	if s.SessionStart.IsZero() {
		s.SessionStart = time.Now()
	}
	s.SessionStart = s.SessionStart.UTC()
	if s.Status == "" {
		s.Status = model.SessionActive
	}

	_, err := r.db.Conn().Exec(`
		INSERT INTO detection_sessions (id, camera_source, status, session_start)
		VALUES (?, ?, ?, ?)
	`, s.ID, s.CameraSource, s.Status, s.SessionStart)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// Finish closes a session with its final counts.
func (r *SessionRepository) Finish(id, status string, frames, detections int) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE detection_sessions
		SET status = ?, session_end = ?, frames = ?, total_detections = ?
		WHERE id = ?
	`, status, time.Now().UTC(), frames, detections, id)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// StopActive marks every session still active as stopped, returning how many
// were closed. Used at startup to close sessions left by a crash.
func (r *SessionRepository) StopActive() (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE detection_sessions SET status = ?, session_end = ? WHERE status = ?
	`, model.SessionStopped, time.Now().UTC(), model.SessionActive)
	if err != nil {
		return 0, fmt.Errorf("failed to stop active sessions: %w", err)
	}
	return result.RowsAffected()
}

// Active returns the most recent active session.
func (r *SessionRepository) Active() (*model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var (
		s   model.Session
		end sql.NullTime
	)
	err := r.db.Conn().QueryRow(`
		SELECT id, camera_source, status, session_start, session_end, frames, total_detections
		FROM detection_sessions
		WHERE status = ?
		ORDER BY session_start DESC
		LIMIT 1
	`, model.SessionActive).Scan(&s.ID, &s.CameraSource, &s.Status, &s.SessionStart, &end, &s.Frames, &s.TotalDetections)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	if end.Valid {
		s.SessionEnd = &end.Time
	}
	return &s, nil
}
