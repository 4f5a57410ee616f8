package dto

import (
	"time"

	"helmetwatch/internal/model"
)

// Control actions accepted by the system control endpoint.
const (
	ActionStart       = "start_detection"
	ActionStop        = "stop_detection"
	ActionChangeCam   = "change_camera"
	ActionHealthCheck = "system_health_check"
)

// SessionData carries optional values sent with a control action.
type SessionData struct {
	TotalDetections int    `json:"total_detections"`
	Health          string `json:"health"`
}

// ControlRequest starts, stops or reconfigures detection.
type ControlRequest struct {
	Action       string       `json:"action"`
	CameraSource string       `json:"camera_source"`
	SessionData  *SessionData `json:"session_data"`
}

// ControlResponse acknowledges a control action.
type ControlResponse struct {
	Message      string         `json:"message"`
	Session      *model.Session `json:"session,omitempty"`
	CameraSource string         `json:"camera_source,omitempty"`
	Status       string         `json:"status,omitempty"`
}

// ActiveSession is the payload of the control status endpoint.
type ActiveSession struct {
	ActiveSession *model.Session `json:"active_session"`
}

// SystemStatus reports live detection metrics.
type SystemStatus struct {
	ProcessingFPS  float64    `json:"processing_fps"`
	DetectionCount int        `json:"detection_count"`
	LastDetection  *time.Time `json:"last_detection"`
	CameraStatus   string     `json:"camera_status"`
	SystemHealth   string     `json:"system_health"`
	LoopState      string     `json:"loop_state"`
	Frames         int        `json:"frames"`
	Viewers        int        `json:"viewers"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
