package model

import "time"

// Violation is a persisted violator crop.
type Violation struct {
	ID                     int64     `json:"id"`
	SessionID              string    `json:"session_id,omitempty"`
	ViolationTime          time.Time `json:"violation_time"`
	Filename               string    `json:"filename"`
	ImagePath              string    `json:"image_path"`
	DetectionConfidence    float64   `json:"detection_confidence"`
	X1                     int       `json:"x1"`
	Y1                     int       `json:"y1"`
	X2                     int       `json:"x2"`
	Y2                     int       `json:"y2"`
	CameraSource           string    `json:"camera_source"`
	LicensePlateText       *string   `json:"license_plate_text"`
	LicensePlateConfidence *float64  `json:"license_plate_confidence"`
	Reviewed               bool      `json:"reviewed"`
	Flagged                bool      `json:"flagged"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// ViolationFilter contains filtering options for querying violations.
type ViolationFilter struct {
	Reviewed  *bool
	Flagged   *bool
	SessionID string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// ViolationUpdate carries the review fields that may change after capture.
type ViolationUpdate struct {
	Reviewed *bool `json:"reviewed"`
	Flagged  *bool `json:"flagged"`
}

// Empty reports whether the update changes nothing.
func (u ViolationUpdate) Empty() bool {
	return u.Reviewed == nil && u.Flagged == nil
}

// ViolationStats contains aggregate counts over stored violations.
type ViolationStats struct {
	Total      int            `json:"total"`
	Today      int            `json:"today"`
	Unreviewed int            `json:"unreviewed"`
	Flagged    int            `json:"flagged"`
	PerCamera  map[string]int `json:"per_camera"`
}
