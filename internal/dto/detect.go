package dto

import "helmetwatch/internal/service/monitor"

// DetectResponse is returned by the upload-and-detect endpoint.
type DetectResponse struct {
	Upload     string              `json:"upload"`
	Annotated  string              `json:"annotated"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Detections []monitor.Annotated `json:"detections"`
	Violations int                 `json:"violations"`
	Compliant  int                 `json:"compliant"`
	Saved      []string            `json:"saved"`
}

// ErrorResponse is the JSON error envelope of the API.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
