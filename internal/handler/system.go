package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/service"
)

// ActiveSessionHandler handles GET /api/system/control.
func ActiveSessionHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.ActiveSession{ActiveSession: manager.ActiveSession()}, logger)
	}
}

// SystemControlHandler handles POST /api/system/control actions.
func SystemControlHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ControlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body", logger)
			return
		}

		switch req.Action {
		case dto.ActionStart:
			session, err := manager.StartDetection(req.CameraSource)
			if errors.Is(err, service.ErrAlreadyRunning) {
				writeError(w, http.StatusConflict, "Detection is already running", logger)
				return
			}
			if err != nil {
				logger.Error("Failed to start detection: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to start detection", logger)
				return
			}
			writeJSON(w, http.StatusOK, dto.ControlResponse{
				Message:      "Detection started",
				Session:      session,
				CameraSource: session.CameraSource,
			}, logger)

		case dto.ActionStop:
			message := "Detection stopped"
			if err := manager.StopDetection(); err != nil {
				if !errors.Is(err, service.ErrNotRunning) {
					logger.Error("Failed to stop detection: %v", err)
					writeError(w, http.StatusInternalServerError, "Failed to stop detection", logger)
					return
				}
				message = "Detection was not running"
			}
			writeJSON(w, http.StatusOK, dto.ControlResponse{Message: message}, logger)

		case dto.ActionChangeCam:
			session, err := manager.ChangeCamera(req.CameraSource)
			if errors.Is(err, service.ErrInvalidSetting) {
				writeError(w, http.StatusBadRequest, "camera_source is required", logger)
				return
			}
			if err != nil {
				logger.Error("Failed to change camera: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to change camera", logger)
				return
			}
			writeJSON(w, http.StatusOK, dto.ControlResponse{
				Message:      "Camera changed",
				Session:      session,
				CameraSource: req.CameraSource,
			}, logger)

		case dto.ActionHealthCheck:
			health := ""
			if req.SessionData != nil {
				health = req.SessionData.Health
			}
			writeJSON(w, http.StatusOK, dto.ControlResponse{
				Message: "Health check completed",
				Status:  manager.HealthCheck(health),
			}, logger)

		default:
			writeError(w, http.StatusBadRequest, "Invalid action", logger)
		}
	}
}

// SystemStatusHandler handles GET /api/system/status.
func SystemStatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.Status(), logger)
	}
}

// GetSettingsHandler handles GET /api/system/settings.
func GetSettingsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := manager.Settings()
		if err != nil {
			logger.Error("Error reading settings: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch settings", logger)
			return
		}
		writeJSON(w, http.StatusOK, settings, logger)
	}
}

// UpdateSettingsHandler handles POST /api/system/settings with a flat
// key/value JSON object.
func UpdateSettingsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var values map[string]string
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			writeError(w, http.StatusBadRequest, "Settings must be a JSON object of strings", logger)
			return
		}

		settings, err := manager.UpdateSettings(values)
		if errors.Is(err, service.ErrInvalidSetting) {
			writeError(w, http.StatusBadRequest, err.Error(), logger)
			return
		}
		if err != nil {
			logger.Error("Error updating settings: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update settings", logger)
			return
		}
		logger.Info("Updated %d setting(s)", len(values))
		writeJSON(w, http.StatusOK, settings, logger)
	}
}
