package handler

import (
	"encoding/json"
	"net/http"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, logger *logger.Logger) {
	writeJSON(w, status, dto.ErrorResponse{Code: status, Message: message}, logger)
}
