package handler

import (
	"errors"
	"net/http"

	"helmetwatch/internal/logger"
	"helmetwatch/internal/service"
)

const maxUploadSize = 32 << 20

// DetectHandler handles POST /detect: the multipart "image" field is stored,
// run through the detector and answered with the annotated result.
func DetectHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart form", logger)
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "No image file provided", logger)
			return
		}
		defer file.Close()

		result, err := manager.DetectUpload(r.Context(), header.Filename, file)
		if err != nil {
			if errors.Is(err, service.ErrInvalidImage) {
				writeError(w, http.StatusBadRequest, "Uploaded file is not a supported image", logger)
				return
			}
			logger.Error("Detection on %s failed: %v", header.Filename, err)
			writeError(w, http.StatusInternalServerError, "Detection failed", logger)
			return
		}

		writeJSON(w, http.StatusOK, result, logger)
	}
}
