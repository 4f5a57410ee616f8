package model

import "time"

const (
	SessionActive  = "active"
	SessionStopped = "stopped"
	SessionFailed  = "failed"
)

// Session is one run of the real-time detection loop.
type Session struct {
	ID              string     `json:"id"`
	CameraSource    string     `json:"camera_source"`
	Status          string     `json:"status"`
	SessionStart    time.Time  `json:"session_start"`
	SessionEnd      *time.Time `json:"session_end"`
	Frames          int        `json:"frames"`
	TotalDetections int        `json:"total_detections"`
}
