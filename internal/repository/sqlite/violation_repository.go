package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"helmetwatch/internal/model"
	"helmetwatch/internal/repository"
)

const violationColumns = `id, session_id, violation_time, filename, image_path, detection_confidence,
	x1, y1, x2, y2, camera_source, license_plate_text, license_plate_confidence,
	reviewed, flagged, created_at, updated_at`

// ViolationRepository implements repository.ViolationRepository for SQLite.
type ViolationRepository struct {
	db *DB
}

// NewViolationRepository creates a new SQLite violation repository.
func NewViolationRepository(db *DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanViolation(row rowScanner) (*model.Violation, error) {
	var (
		v         model.Violation
		sessionID sql.NullString
		plate     sql.NullString
		plateConf sql.NullFloat64
	)
	err := row.Scan(&v.ID, &sessionID, &v.ViolationTime, &v.Filename, &v.ImagePath, &v.DetectionConfidence,
		&v.X1, &v.Y1, &v.X2, &v.Y2, &v.CameraSource, &plate, &plateConf,
		&v.Reviewed, &v.Flagged, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.SessionID = sessionID.String
	if plate.Valid {
		v.LicensePlateText = &plate.String
	}
	if plateConf.Valid {
		v.LicensePlateConfidence = &plateConf.Float64
	}
	return &v, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Insert adds a new violation record to the database.
func (r *ViolationRepository) Insert(v *model.Violation) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if v.ViolationTime.IsZero() {
		v.ViolationTime = time.Now()
	}
	v.ViolationTime = v.ViolationTime.UTC()

	result, err := r.db.Conn().Exec(`
		INSERT INTO violations (session_id, violation_time, filename, image_path, detection_confidence,
			x1, y1, x2, y2, camera_source, license_plate_text, license_plate_confidence, reviewed, flagged)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, nullString(v.SessionID), v.ViolationTime, v.Filename, v.ImagePath, v.DetectionConfidence,
		v.X1, v.Y1, v.X2, v.Y2, v.CameraSource, v.LicensePlateText, v.LicensePlateConfidence, v.Reviewed, v.Flagged)
	if err != nil {
		return 0, fmt.Errorf("failed to insert violation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	v.ID = id
	return id, nil
}

// GetByID retrieves a violation by its ID.
func (r *ViolationRepository) GetByID(id int64) (*model.Violation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.getBy("id", id)
}

// GetByFilename retrieves the most recent violation stored under filename.
func (r *ViolationRepository) GetByFilename(filename string) (*model.Violation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.getBy("filename", filename)
}

func (r *ViolationRepository) getBy(column string, value interface{}) (*model.Violation, error) {
	row := r.db.Conn().QueryRow(`SELECT `+violationColumns+` FROM violations WHERE `+column+` = ? ORDER BY id DESC LIMIT 1`, value)
	v, err := scanViolation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get violation: %w", err)
	}
	return v, nil
}

// where builds the WHERE clause shared by GetAll and Count.
func where(filter *model.ViolationFilter) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	if filter == nil {
		return conditions[0], args
	}

	if filter.Reviewed != nil {
		conditions = append(conditions, "reviewed = ?")
		args = append(args, *filter.Reviewed)
	}
	if filter.Flagged != nil {
		conditions = append(conditions, "flagged = ?")
		args = append(args, *filter.Flagged)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if !filter.StartDate.IsZero() {
		conditions = append(conditions, "violation_time >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		conditions = append(conditions, "violation_time <= ?")
		args = append(args, filter.EndDate.UTC())
	}
	return strings.Join(conditions, " AND "), args
}

// GetAll retrieves violations based on filter criteria, newest first.
func (r *ViolationRepository) GetAll(filter *model.ViolationFilter) ([]model.Violation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := where(filter)
	query := `SELECT ` + violationColumns + ` FROM violations WHERE ` + clause + ` ORDER BY violation_time DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	violations := []model.Violation{}
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		violations = append(violations, *v)
	}
	return violations, rows.Err()
}

// Count returns the number of violations matching the filter.
func (r *ViolationRepository) Count(filter *model.ViolationFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	clause, args := where(filter)
	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM violations WHERE `+clause, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count violations: %w", err)
	}
	return count, nil
}

// CountByImagePath returns how many violations reference the file at path.
func (r *ViolationRepository) CountByImagePath(path string) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM violations WHERE image_path = ?`, path).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count image references: %w", err)
	}
	return count, nil
}

// Stats returns aggregate counts over all violations.
func (r *ViolationRepository) Stats() (*model.ViolationStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.ViolationStats{PerCamera: make(map[string]int)}
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UTC()

	err := r.db.Conn().QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN violation_time >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN reviewed = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN flagged = 1 THEN 1 ELSE 0 END), 0)
		FROM violations
	`, midnight).Scan(&stats.Total, &stats.Today, &stats.Unreviewed, &stats.Flagged)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	rows, err := r.db.Conn().Query(`SELECT camera_source, COUNT(*) FROM violations GROUP BY camera_source`)
	if err != nil {
		return nil, fmt.Errorf("failed to count per camera: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var camera string
		var count int
		if err := rows.Scan(&camera, &count); err != nil {
			return nil, err
		}
		stats.PerCamera[camera] = count
	}
	return stats, rows.Err()
}

// Update changes the review fields of a violation and returns the new row.
func (r *ViolationRepository) Update(id int64, update model.ViolationUpdate) (*model.Violation, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var (
		fields []string
		args   []interface{}
	)
	if update.Reviewed != nil {
		fields = append(fields, "reviewed = ?")
		args = append(args, *update.Reviewed)
	}
	if update.Flagged != nil {
		fields = append(fields, "flagged = ?")
		args = append(args, *update.Flagged)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	fields = append(fields, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	result, err := r.db.Conn().Exec(`UPDATE violations SET `+strings.Join(fields, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update violation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, repository.ErrNotFound
	}

	return r.getBy("id", id)
}

// Delete removes a violation by its ID.
func (r *ViolationRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM violations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete violation: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
