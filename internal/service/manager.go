package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"offerlens/internal/dto"
	"offerlens/internal/logger"
	"offerlens/internal/model"
)

var (
	// ErrBusy is returned when every worker is occupied and the queue is full.
	ErrBusy = errors.New("capture queue full")
	// ErrStopped is returned after Stop.
	ErrStopped = errors.New("capture manager stopped")
	// ErrDetection wraps failures of the detector on a frame.
	ErrDetection = errors.New("detection failed")
	// ErrUnavailable is wrapped by detectors that cannot run at all, e.g. a missing model.
	ErrUnavailable = errors.New("detector unavailable")
)

// Detector finds objects in an encoded frame and draws them back onto it.
type Detector interface {
	DetectObjects(frame []byte) (model.Detections, error)
	DrawDetections(detections model.Detections, frame []byte) ([]byte, error)
}

// Display shows matched offers to the people in front of the screen.
// Replace clears and shows as one delivery.
type Display interface {
	Clear()
	Replace(label string, cards []model.OfferCard, image string)
}

// OfferLookup resolves a detected label to offer cards.
type OfferLookup interface {
	Lookup(tag string) []model.OfferCard
}

// CaptureRecorder keeps a history of processed captures.
type CaptureRecorder interface {
	AddCapture(capture dto.BufferedCapture)
}

type captureTask struct {
	ctx   context.Context
	frame []byte
	reply chan captureReply
}

type captureReply struct {
	result *dto.CaptureResult
	err    error
}

// Manager runs captured frames through detection, offer lookup and display.
// Each worker owns one Detector.
type Manager struct {
	detectors []Detector
	offers    OfferLookup
	display   Display
	recorder  CaptureRecorder
	logger    *logger.Logger

	queue   chan captureTask
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewManager starts one processing worker per detector.
func NewManager(detectors []Detector, offers OfferLookup, display Display, recorder CaptureRecorder,
	queueSize int, logger *logger.Logger) *Manager {
	m := &Manager{
		detectors: detectors,
		offers:    offers,
		display:   display,
		recorder:  recorder,
		logger:    logger,
		queue:     make(chan captureTask, queueSize),
	}

	for i := range detectors {
		m.wg.Add(1)
		go m.processingWorker(i)
	}

	m.logger.Info("🎬 Manager started with %d worker(s), queue size %d", len(detectors), queueSize)
	return m
}

// HandleCapture queues a frame and waits for its result.
func (m *Manager) HandleCapture(ctx context.Context, frame []byte) (*dto.CaptureResult, error) {
	task := captureTask{ctx: ctx, frame: frame, reply: make(chan captureReply, 1)}

	m.mu.RLock()
	if m.stopped {
		m.mu.RUnlock()
		return nil, ErrStopped
	}
	select {
	case m.queue <- task:
	default:
		m.mu.RUnlock()
		m.logger.Warning("⚠️  Processing queue full - rejecting capture")
		return nil, ErrBusy
	}
	m.mu.RUnlock()

	select {
	case reply := <-task.reply:
		return reply.result, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CloseDisplay clears every display, as when the overlay is closed.
func (m *Manager) CloseDisplay() {
	m.display.Clear()
}

func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("🔧 Processing worker %d started", workerID)

	for task := range m.queue {
		if task.ctx.Err() != nil {
			continue
		}
		result, err := m.process(task.frame, m.detectors[workerID])
		task.reply <- captureReply{result: result, err: err}
	}

	m.logger.Info("🔧 Processing worker %d stopped", workerID)
}

func (m *Manager) process(frame []byte, detector Detector) (*dto.CaptureResult, error) {
	detections, err := detector.DetectObjects(frame)
	if err != nil {
		m.logger.Error("Error detecting objects: %v", err)
		m.display.Replace("", nil, "")
		return nil, fmt.Errorf("%w: %w", ErrDetection, err)
	}

	if detections == nil {
		detections = model.Detections{}
	}

	label := detections.TopLabel()
	cards := m.offers.Lookup(label)

	annotated := frame
	if len(detections) > 0 {
		drawn, err := detector.DrawDetections(detections, frame)
		if err != nil {
			m.logger.Error("Failed to draw detections: %v", err)
		} else {
			annotated = drawn
		}
	}
	encoded := base64.StdEncoding.EncodeToString(annotated)

	m.display.Replace(label, cards, encoded)

	result := &dto.CaptureResult{
		ID:         uuid.NewString(),
		Label:      label,
		Detected:   len(detections) > 0,
		Detections: detections,
		Offers:     cards,
		Image:      encoded,
	}

	switch {
	case !result.Detected:
		result.Message = dto.NothingDetected
	case len(cards) == 0:
		result.Message = dto.NoOffersMessage
	}

	if result.Detected && m.recorder != nil {
		m.recorder.AddCapture(dto.BufferedCapture{
			ID:         result.ID,
			Timestamp:  time.Now(),
			Label:      label,
			OfferCount: len(cards),
			Detections: detections,
			Data:       annotated,
		})
	}

	m.logger.Info("📸 Capture %s: label=%q offers=%d", result.ID, label, len(cards))
	return result, nil
}

// Stop rejects new captures, lets queued ones finish and waits for the workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("🛑 All processing workers stopped")
}
