package service

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerlens/internal/dto"
	"offerlens/internal/logger"
	"offerlens/internal/model"
	"offerlens/internal/service/offers"
)

type fakeDetector struct {
	detections model.Detections
	err        error
	drawErr    error
	started    chan struct{}
	block      chan struct{}
}

func (f *fakeDetector) DetectObjects(frame []byte) (model.Detections, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.detections, f.err
}

func (f *fakeDetector) DrawDetections(detections model.Detections, frame []byte) ([]byte, error) {
	if f.drawErr != nil {
		return nil, f.drawErr
	}
	return append([]byte("drawn:"), frame...), nil
}

type displayCall struct {
	kind  string
	label string
	cards []model.OfferCard
}

type fakeDisplay struct {
	mu    sync.Mutex
	calls []displayCall
}

func (f *fakeDisplay) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, displayCall{kind: dto.DisplayClear})
}

func (f *fakeDisplay) Replace(label string, cards []model.OfferCard, image string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls,
		displayCall{kind: dto.DisplayClear},
		displayCall{kind: dto.DisplayShow, label: label, cards: cards})
}

type fakeRecorder struct {
	mu       sync.Mutex
	captures []dto.BufferedCapture
}

func (f *fakeRecorder) AddCapture(c dto.BufferedCapture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.captures = append(f.captures, c)
}

func testIndex() *offers.Index {
	return offers.Build([]model.RawOffer{
		{Title: "A", Teaser: "T", ThumbImage: []string{"img1.jpg"}, Tags: []string{"cup", "mug"}, Path: "/a"},
	}, "https://example.com")
}

func newTestManager(t *testing.T, det Detector, lookup OfferLookup, queue int) (*Manager, *fakeDisplay, *fakeRecorder) {
	t.Helper()
	display := &fakeDisplay{}
	recorder := &fakeRecorder{}
	m := NewManager([]Detector{det}, lookup, display, recorder, queue, logger.Discard())
	t.Cleanup(m.Stop)
	return m, display, recorder
}

func TestHandleCapture_MatchesTopLabel(t *testing.T) {
	det := &fakeDetector{detections: model.Detections{
		{Label: "person", Score: 0.7},
		{Label: "cup", Score: 0.92},
	}}
	m, display, recorder := newTestManager(t, det, testIndex(), 4)

	result, err := m.HandleCapture(context.Background(), []byte("frame"))
	require.NoError(t, err)

	assert.True(t, result.Detected)
	assert.Equal(t, "cup", result.Label)
	assert.NotEmpty(t, result.ID)
	assert.Empty(t, result.Message)
	require.Len(t, result.Offers, 1)
	assert.Equal(t, "https://example.com/a", result.Offers[0].Href)

	img, err := base64.StdEncoding.DecodeString(result.Image)
	require.NoError(t, err)
	assert.Equal(t, "drawn:frame", string(img))

	require.Len(t, display.calls, 2)
	assert.Equal(t, dto.DisplayClear, display.calls[0].kind)
	assert.Equal(t, dto.DisplayShow, display.calls[1].kind)
	assert.Equal(t, "cup", display.calls[1].label)

	require.Len(t, recorder.captures, 1)
	assert.Equal(t, result.ID, recorder.captures[0].ID)
	assert.Equal(t, 1, recorder.captures[0].OfferCount)
}

func TestHandleCapture_NothingDetected(t *testing.T) {
	m, display, recorder := newTestManager(t, &fakeDetector{}, testIndex(), 4)

	result, err := m.HandleCapture(context.Background(), []byte("frame"))
	require.NoError(t, err)

	assert.False(t, result.Detected)
	assert.Equal(t, "", result.Label)
	assert.Equal(t, dto.NothingDetected, result.Message)
	assert.NotNil(t, result.Offers)
	assert.Empty(t, result.Offers)
	assert.NotNil(t, result.Detections)

	require.Len(t, display.calls, 2)
	assert.Empty(t, display.calls[1].cards)
	assert.Empty(t, recorder.captures)
}

func TestHandleCapture_UnknownLabelHasNoOffers(t *testing.T) {
	det := &fakeDetector{detections: model.Detections{{Label: "giraffe", Score: 0.8}}}
	m, _, recorder := newTestManager(t, det, testIndex(), 4)

	result, err := m.HandleCapture(context.Background(), []byte("frame"))
	require.NoError(t, err)

	assert.True(t, result.Detected)
	assert.Empty(t, result.Offers)
	assert.Equal(t, dto.NoOffersMessage, result.Message)
	require.Len(t, recorder.captures, 1)
	assert.Equal(t, 0, recorder.captures[0].OfferCount)
}

func TestHandleCapture_EmptyIndexBeforeFeedSettles(t *testing.T) {
	det := &fakeDetector{detections: model.Detections{{Label: "cup", Score: 0.8}}}
	m, _, _ := newTestManager(t, det, offers.Empty(), 4)

	result, err := m.HandleCapture(context.Background(), []byte("frame"))
	require.NoError(t, err)
	assert.Empty(t, result.Offers)
}

func TestHandleCapture_DrawFailureKeepsUnannotatedFrame(t *testing.T) {
	det := &fakeDetector{
		detections: model.Detections{{Label: "cup", Score: 0.8}},
		drawErr:    errors.New("encode failed"),
	}
	m, _, _ := newTestManager(t, det, testIndex(), 4)

	result, err := m.HandleCapture(context.Background(), []byte("frame"))
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("frame")), result.Image)
}

func TestHandleCapture_DetectionError(t *testing.T) {
	boom := errors.New("bad frame")
	m, display, _ := newTestManager(t, &fakeDetector{err: boom}, testIndex(), 4)

	_, err := m.HandleCapture(context.Background(), []byte("frame"))
	assert.ErrorIs(t, err, ErrDetection)
	assert.ErrorIs(t, err, boom)

	require.Len(t, display.calls, 2)
	assert.Equal(t, dto.DisplayShow, display.calls[1].kind)
	assert.Empty(t, display.calls[1].cards)
}

func TestHandleCapture_QueueFull(t *testing.T) {
	det := &fakeDetector{started: make(chan struct{}, 2), block: make(chan struct{})}
	m, _, _ := newTestManager(t, det, testIndex(), 1)
	defer close(det.block)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One frame occupies the worker, one fills the queue.
	go m.HandleCapture(ctx, []byte("1"))
	<-det.started
	go m.HandleCapture(ctx, []byte("2"))
	require.Eventually(t, func() bool { return len(m.queue) == 1 }, time.Second, time.Millisecond)

	_, err := m.HandleCapture(ctx, []byte("3"))
	assert.ErrorIs(t, err, ErrBusy)
}

func TestHandleCapture_ContextCancelled(t *testing.T) {
	det := &fakeDetector{block: make(chan struct{})}
	m, _, _ := newTestManager(t, det, testIndex(), 1)
	defer close(det.block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.HandleCapture(ctx, []byte("frame"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStop_RejectsNewCaptures(t *testing.T) {
	m := NewManager([]Detector{&fakeDetector{}}, testIndex(), &fakeDisplay{}, nil, 1, logger.Discard())
	m.Stop()
	m.Stop()

	_, err := m.HandleCapture(context.Background(), []byte("frame"))
	assert.ErrorIs(t, err, ErrStopped)
}

func TestCloseDisplay(t *testing.T) {
	m, display, _ := newTestManager(t, &fakeDetector{}, testIndex(), 1)

	m.CloseDisplay()

	require.Len(t, display.calls, 1)
	assert.Equal(t, dto.DisplayClear, display.calls[0].kind)
}
