package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"offerlens/internal/dto"
	"offerlens/internal/logger"
	"offerlens/internal/model"
	"offerlens/internal/repository"
)

const timestampLayout = "2006-01-02_15-04-05.000"

// BufferService buffers annotated captures in memory and periodically flushes them to disk and the database.
type BufferService struct {
	imagesDir     string
	limit         int
	interval      time.Duration
	captures      []dto.BufferedCapture
	flushNow      chan struct{}
	mu            sync.Mutex
	logger        *logger.Logger
	captureRepo   repository.CaptureRepository
	detectionRepo repository.DetectionRepository
}

// NewBufferService creates a BufferService. Either repository may be nil, in which case only files are written.
func NewBufferService(imagesDir string, limit int, interval time.Duration, logger *logger.Logger,
	captureRepo repository.CaptureRepository, detectionRepo repository.DetectionRepository) *BufferService {
	return &BufferService{
		imagesDir:     imagesDir,
		limit:         limit,
		interval:      interval,
		captures:      make([]dto.BufferedCapture, 0, limit),
		flushNow:      make(chan struct{}, 1),
		logger:        logger,
		captureRepo:   captureRepo,
		detectionRepo: detectionRepo,
	}
}

// Run flushes on every tick and whenever the buffer fills, until ctx is done.
// A last flush runs on the way out.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushCaptures()
			return
		case <-ticker.C:
			s.FlushCaptures()
		case <-s.flushNow:
			s.FlushCaptures()
		}
	}
}

// AddCapture appends a capture to the buffer and requests an early flush once the buffer is full.
func (s *BufferService) AddCapture(capture dto.BufferedCapture) {
	s.mu.Lock()
	s.captures = append(s.captures, capture)
	size := len(s.captures)
	s.mu.Unlock()

	if size >= s.limit {
		select {
		case s.flushNow <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of captures waiting to be flushed.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.captures)
}

// FlushCaptures writes buffered captures to disk and the database, then empties the buffer.
func (s *BufferService) FlushCaptures() int {
	s.mu.Lock()
	pending := s.captures
	s.captures = make([]dto.BufferedCapture, 0, s.limit)
	s.mu.Unlock()

	if len(pending) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	saved := 0
	for _, capture := range pending {
		if err := s.save(capture); err != nil {
			s.logger.Error("Error saving capture %s: %v", capture.ID, err)
			continue
		}
		saved++
	}

	s.logger.Info("Flushed %d captures to disk", saved)
	return saved
}

func (s *BufferService) save(capture dto.BufferedCapture) error {
	filename := Filename(capture)
	fullpath := filepath.Join(s.imagesDir, filename)

	if err := os.WriteFile(fullpath, capture.Data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	if s.captureRepo == nil {
		return nil
	}

	err := s.captureRepo.Insert(&model.Capture{
		ID:         capture.ID,
		Filename:   filename,
		Label:      capture.Label,
		OfferCount: capture.OfferCount,
		Timestamp:  capture.Timestamp.UTC(),
		FilePath:   fullpath,
		FileSize:   int64(len(capture.Data)),
	})
	if err != nil {
		return err
	}

	if s.detectionRepo == nil || len(capture.Detections) == 0 {
		return nil
	}

	rows := make([]model.CaptureDetection, 0, len(capture.Detections))
	for _, det := range capture.Detections {
		rows = append(rows, model.CaptureDetection{
			CaptureID: capture.ID,
			Label:     det.Label,
			X:         det.X,
			Y:         det.Y,
			Width:     det.Width,
			Height:    det.Height,
			Score:     det.Score,
		})
	}
	return s.detectionRepo.InsertBatch(rows)
}

// Filename builds the on-disk name of a capture: {timestamp}_{label}_{id prefix}.jpg.
func Filename(capture dto.BufferedCapture) string {
	label := capture.Label
	if label == "" {
		label = "nothing"
	}
	label = strings.ReplaceAll(label, " ", "-")

	id := capture.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s.jpg", capture.Timestamp.Format(timestampLayout), label, id)
}
