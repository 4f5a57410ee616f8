package dto

import "helmetwatch/internal/model"

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ViolationList is a paginated response payload for the violations list.
type ViolationList struct {
	Violations []model.Violation     `json:"violations"`
	Pagination Pagination            `json:"pagination"`
	Stats      *model.ViolationStats `json:"stats,omitempty"`
}

// CreateViolationRequest records a violation captured outside the loop.
type CreateViolationRequest struct {
	ImagePath              string   `json:"image_path"`
	LicensePlateText       *string  `json:"license_plate_text"`
	LicensePlateConfidence *float64 `json:"license_plate_confidence"`
	DetectionConfidence    *float64 `json:"detection_confidence"`
	CameraSource           string   `json:"camera_source"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
