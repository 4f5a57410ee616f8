package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"helmetwatch/internal/logger"

	"github.com/gorilla/mux"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

func logFile(r *http.Request) (string, bool) {
	name, ok := logFiles[mux.Vars(r)["level"]]
	return name, ok
}

// ShowLogsHandler serves /logs/{level} as text/plain.
func ShowLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := logFile(r)
		if !ok {
			http.Error(w, "Unknown log level", http.StatusNotFound)
			return
		}

		path := filepath.Join(logger.Dir(), name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.Error(w, "Log file not found: "+name, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, path)
	}
}

// ClearLogsHandler truncates /logs/{level}/clear via the logger.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := logFile(r)
		if !ok {
			http.Error(w, "Unknown log level", http.StatusNotFound)
			return
		}
		logger.CleanLogs(name)
		w.WriteHeader(http.StatusNoContent)
	}
}
