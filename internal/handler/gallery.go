package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"offerlens/internal/config"
	"offerlens/internal/dto"
	"offerlens/internal/logger"
	"offerlens/internal/model"
	"offerlens/internal/repository"
)

// Paging bounds; maxPage*maxPageSize stays far below any int overflow.
const (
	maxPageSize = 100
	maxPage     = 1_000_000
)

// GetCapturesHandler returns a filtered, paginated capture history.
func GetCapturesHandler(logger *logger.Logger, captureRepo repository.CaptureRepository,
	detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := min(atoiDefault(q.Get("page"), 1), maxPage)
		limit := min(atoiDefault(q.Get("limit"), 24), maxPageSize)

		filter := &model.CaptureFilter{
			Label:  q.Get("label"),
			After:  parseDate(q.Get("dateAfter")),
			Before: parseDate(q.Get("dateBefore")),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}
		if !filter.Before.IsZero() {
			// Inclusive of the whole "before" day.
			filter.Before = filter.Before.Add(24 * time.Hour)
		}

		captures, err := captureRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying captures from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalSize, err := captureRepo.GetTotalSize()
		if err != nil {
			logger.Error("Error getting capture size: %v", err)
			totalSize = 0
		}

		totalCount, err := captureRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting captures: %v", err)
			totalCount = len(captures)
		}

		infos := make([]dto.CaptureInfo, 0, len(captures))
		for _, c := range captures {
			objects := []string{}
			if detectionRepo != nil {
				objects, err = detectionRepo.GetLabelsByCaptureID(c.ID)
				if err != nil {
					logger.Error("Error getting labels for capture %s: %v", c.ID, err)
					objects = []string{}
				}
			}

			infos = append(infos, dto.CaptureInfo{
				ID:         c.ID,
				Name:       c.Filename,
				Date:       c.Timestamp,
				TimeOfDay:  c.Timestamp,
				Label:      c.Label,
				OfferCount: c.OfferCount,
				Objects:    objects,
			})
		}

		writeJSON(w, http.StatusOK, dto.CapturesPage{
			Captures:    infos,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// GetCaptureLabelsHandler lists every label ever detected, for the gallery filter.
func GetCaptureLabelsHandler(logger *logger.Logger, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labels, err := detectionRepo.GetAllLabels()
		if err != nil {
			logger.Error("Error listing labels: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, labels, logger)
	}
}

// DeleteCaptureHandler removes a capture from disk and database.
func DeleteCaptureHandler(cfg *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := r.URL.Query().Get("filename")
		if filename == "" {
			http.Error(w, "Filename required", http.StatusBadRequest)
			return
		}
		if !safeName(filename) {
			http.Error(w, "Invalid filename", http.StatusBadRequest)
			return
		}

		filePath := filepath.Join(cfg.ImageDirectory, filename)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
		}

		if captureRepo != nil {
			if err := captureRepo.DeleteByFilename(filename); err != nil {
				logger.Error("Failed to delete from database: %v", err)
			}
		}

		logger.Info("Deleted capture: %s", filename)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "filename": filename}, logger)
	}
}

// ClearCapturesHandler deletes every file in the image directory and empties the database.
func ClearCapturesHandler(cfg *config.Config, logger *logger.Logger, captureRepo repository.CaptureRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := os.ReadDir(cfg.ImageDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading captures directory: %v", err)
			http.Error(w, "Unable to read captures directory", http.StatusInternalServerError)
			return
		}

		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(cfg.ImageDirectory, file.Name())); err != nil {
				logger.Error("Error deleting file %s: %v", file.Name(), err)
			}
		}

		if captureRepo != nil {
			if err := captureRepo.DeleteAll(); err != nil {
				logger.Error("Error clearing database: %v", err)
			}
		}

		logger.Info("All captures cleared from directory: %s", cfg.ImageDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ViewCaptureHandler serves a single capture file named by the "image" query parameter.
func ViewCaptureHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		if !safeName(image) {
			http.Error(w, "Invalid image name", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.ImageDirectory, image))
	}
}

// safeName accepts plain file names only: no separators, no parent references.
func safeName(name string) bool {
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
