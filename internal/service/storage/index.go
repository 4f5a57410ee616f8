package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"helmetwatch/internal/frame"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/model"
	"helmetwatch/internal/repository"
	"helmetwatch/internal/service/monitor"
)

var cropName = regexp.MustCompile(`^(?:(\d{8}-\d{6})_|[^_]+_)?violator_(\d+)\.jpg$`)

// ParseCropName reports whether filename is a violator crop name. For
// qualified names the run start time is returned as well.
func ParseCropName(filename string) (runStart time.Time, ok bool) {
	m := cropName.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, false
	}
	if m[1] != "" {
		if t, err := time.ParseInLocation(monitor.QualifiedLayout, m[1], time.Local); err == nil {
			runStart = t
		}
	}
	return runStart, true
}

// IndexResult counts the outcome of IndexDirectory.
type IndexResult struct {
	Added    int
	Existing int
	Skipped  int
}

// IndexDirectory records every violator crop in dir that the repository
// does not know yet. The violation time is the file modification time.
func IndexDirectory(dir, camera string, repo repository.ViolationRepository, logger *logger.Logger) (IndexResult, error) {
	var result IndexResult

	entries, err := os.ReadDir(dir)
	if err != nil {
		return result, fmt.Errorf("failed to read violation directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, ok := ParseCropName(name); !ok {
			logger.Warning("Skipping %s: not a violator crop", name)
			result.Skipped++
			continue
		}

		if _, err := repo.GetByFilename(name); err == nil {
			result.Existing++
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return result, err
		}

		if _, err := frame.Open(filepath.Join(dir, name)); err != nil {
			logger.Warning("Skipping %s: %v", name, err)
			result.Skipped++
			continue
		}

		info, err := entry.Info()
		if err != nil {
			logger.Warning("Failed to get info for %s: %v", name, err)
			result.Skipped++
			continue
		}

		v := &model.Violation{
			ViolationTime: info.ModTime(),
			Filename:      name,
			ImagePath:     filepath.Join(dir, name),
			CameraSource:  camera,
		}
		if _, err := repo.Insert(v); err != nil {
			return result, err
		}
		result.Added++
	}
	return result, nil
}
