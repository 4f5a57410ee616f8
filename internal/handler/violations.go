package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"helmetwatch/internal/dto"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
	"helmetwatch/internal/repository"
	"helmetwatch/internal/service/storage"

	"github.com/gorilla/mux"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ListViolationsHandler returns a filtered, paginated list of violations.
// Query: page, limit, reviewed, flagged, startDate, endDate (YYYY-MM-DD).
func ListViolationsHandler(repo repository.ViolationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageLimit)
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		filter := &model.ViolationFilter{
			Reviewed:  parseBool(q.Get("reviewed")),
			Flagged:   parseBool(q.Get("flagged")),
			SessionID: q.Get("session"),
			StartDate: parseDate(q.Get("startDate")),
			EndDate:   parseDate(q.Get("endDate")),
		}
		if !filter.EndDate.IsZero() {
			// endDate is inclusive
			filter.EndDate = filter.EndDate.Add(24*time.Hour - time.Nanosecond)
		}

		total, err := repo.Count(filter)
		if err != nil {
			logger.Error("Error counting violations: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch violations", logger)
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		violations, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying violations: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch violations", logger)
			return
		}
		if violations == nil {
			violations = []model.Violation{}
		}

		stats, err := repo.Stats()
		if err != nil {
			logger.Warning("Error computing violation stats: %v", err)
		}

		writeJSON(w, http.StatusOK, dto.ViolationList{
			Violations: violations,
			Pagination: dto.Pagination{
				Page:       page,
				Limit:      limit,
				Total:      total,
				TotalPages: (total + limit - 1) / limit,
			},
			Stats: stats,
		}, logger)
	}
}

// CreateViolationHandler records a violation captured outside the loop. The
// image must live in the violation directory.
func CreateViolationHandler(repo repository.ViolationRepository, store *storage.ViolationStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateViolationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body", logger)
			return
		}
		if req.ImagePath == "" {
			writeError(w, http.StatusBadRequest, "image_path is required", logger)
			return
		}
		imagePath, ok := store.Resolve(req.ImagePath)
		if !ok {
			logger.Warning("Rejected violation image outside %s: %s", store.Dir(), req.ImagePath)
			writeError(w, http.StatusBadRequest, "image_path must be inside the violation directory", logger)
			return
		}

		v := &model.Violation{
			ViolationTime:          time.Now(),
			Filename:               filepath.Base(imagePath),
			ImagePath:              imagePath,
			CameraSource:           req.CameraSource,
			LicensePlateText:       req.LicensePlateText,
			LicensePlateConfidence: req.LicensePlateConfidence,
		}
		if req.DetectionConfidence != nil {
			v.DetectionConfidence = *req.DetectionConfidence
		}
		if v.CameraSource == "" {
			v.CameraSource = "0"
		}

		id, err := repo.Insert(v)
		if err != nil {
			logger.Error("Error creating violation: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create violation", logger)
			return
		}

		created, err := repo.GetByID(id)
		if err != nil {
			logger.Error("Error reading created violation %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "Failed to create violation", logger)
			return
		}
		logger.Info("Violation %d created from %s", id, req.ImagePath)
		writeJSON(w, http.StatusCreated, created, logger)
	}
}

// GetViolationHandler returns one violation by id.
func GetViolationHandler(repo repository.ViolationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := violationID(w, r, logger)
		if !ok {
			return
		}

		v, err := repo.GetByID(id)
		if err != nil {
			notFoundOr500(w, err, "Failed to fetch violation", logger)
			return
		}
		writeJSON(w, http.StatusOK, v, logger)
	}
}

// UpdateViolationHandler changes the reviewed and flagged marks.
func UpdateViolationHandler(repo repository.ViolationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := violationID(w, r, logger)
		if !ok {
			return
		}

		var update model.ViolationUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body", logger)
			return
		}
		if update.Reviewed == nil && update.Flagged == nil {
			writeError(w, http.StatusBadRequest, "Nothing to update", logger)
			return
		}

		v, err := repo.Update(id, update)
		if err != nil {
			notFoundOr500(w, err, "Failed to update violation", logger)
			return
		}
		writeJSON(w, http.StatusOK, v, logger)
	}
}

// DeleteViolationHandler removes a violation. Its crop file goes too unless
// another violation still references it.
func DeleteViolationHandler(repo repository.ViolationRepository, store *storage.ViolationStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := violationID(w, r, logger)
		if !ok {
			return
		}

		v, err := repo.GetByID(id)
		if err != nil {
			notFoundOr500(w, err, "Failed to delete violation", logger)
			return
		}

		if err := repo.Delete(id); err != nil {
			notFoundOr500(w, err, "Failed to delete violation", logger)
			return
		}

		if v.ImagePath != "" {
			if err := store.Remove(v.ImagePath); err != nil {
				logger.Error("Failed to delete file for violation %d: %v", id, err)
			}
		}

		logger.Info("Deleted violation %d (%s)", id, v.Filename)
		writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Violation deleted successfully"}, logger)
	}
}

func violationID(w http.ResponseWriter, r *http.Request, logger *logger.Logger) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid violation id", logger)
		return 0, false
	}
	return id, true
}

func notFoundOr500(w http.ResponseWriter, err error, message string, logger *logger.Logger) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Violation not found", logger)
		return
	}
	logger.Error("%s: %v", message, err)
	writeError(w, http.StatusInternalServerError, message, logger)
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseBool returns nil for an empty or malformed value.
func parseBool(v string) *bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// parseDate parses a local date in the HTML input format "2006-01-02".
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
