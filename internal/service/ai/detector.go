package ai

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"offerlens/internal/logger"
	"offerlens/internal/model"
	"offerlens/internal/service"
)

// ErrNetworkNotReady is returned by DetectObjects when the model could not be loaded.
var ErrNetworkNotReady = fmt.Errorf("%w: detection network not initialized", service.ErrUnavailable)

// boxColor is the page accent, #1a73e8.
var boxColor = color.RGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 0}

// DetectorService runs an SSD MobileNet COCO network over captured frames.
// A gocv.Net is not safe for concurrent use; create one service per worker.
type DetectorService struct {
	net        gocv.Net
	ready      bool
	modelPath  string
	configPath string
	threshold  float64
	logger     *logger.Logger
}

// NewDetectorService creates a detector and tries to load the network.
// A load failure is logged; the service then answers every detection with ErrNetworkNotReady.
func NewDetectorService(modelPath, configPath string, threshold float64, logger *logger.Logger) *DetectorService {
	detector := &DetectorService{
		modelPath:  modelPath,
		configPath: configPath,
		threshold:  threshold,
		logger:     logger,
	}

	if err := detector.initializeNet(); err != nil {
		detector.logger.Warning("Could not initialize detection network: %v", err)
	}

	return detector
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.configPath)
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable target: %w", err)
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network initialized successfully")
	return nil
}

// Ready reports whether the network loaded.
func (s *DetectorService) Ready() bool {
	return s.ready
}

// DetectObjects runs the network on an encoded frame and returns the detections above the threshold.
func (s *DetectorService) DetectObjects(frame []byte) (model.Detections, error) {
	if !s.ready {
		return nil, ErrNetworkNotReady
	}

	mat, err := decode(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	// SSD COCO input: 300x300, scaled to [-1, 1], RGB.
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	// Each output row: [batch_id, class_id, confidence, x1, y1, x2, y2], coordinates normalized.
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols, height := float32(mat.Cols()), float32(mat.Rows())
	detections := model.Detections{}
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if float64(confidence) <= s.threshold {
			continue
		}

		x1 := int(rows.GetFloatAt(i, 3) * cols)
		y1 := int(rows.GetFloatAt(i, 4) * height)
		x2 := int(rows.GetFloatAt(i, 5) * cols)
		y2 := int(rows.GetFloatAt(i, 6) * height)

		detections = append(detections, model.Detection{
			Label:  model.ClassLabel(int(rows.GetFloatAt(i, 1))),
			Score:  float64(confidence),
			X:      x1,
			Y:      y1,
			Width:  x2 - x1,
			Height: y2 - y1,
		})
	}

	if len(detections) > 0 {
		s.logger.Info("Detected %d object(s), top: %s", len(detections), detections.TopLabel())
	}
	return detections, nil
}

// DrawDetections draws every box and its caption on the frame and returns it re-encoded as JPEG.
func (s *DetectorService) DrawDetections(detections model.Detections, frame []byte) ([]byte, error) {
	mat, err := decode(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	for _, detection := range detections {
		if err := gocv.Rectangle(&mat, detection.Rect(), boxColor, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}
		if err := gocv.PutText(&mat, detection.Caption(), detection.CaptionOrigin(), gocv.FontHersheySimplex, 0.5, boxColor, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	annotated := make([]byte, buf.Len())
	copy(annotated, buf.GetBytes())
	return annotated, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	if !s.ready {
		return nil
	}
	s.ready = false
	return s.net.Close()
}

func decode(frame []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		return mat, fmt.Errorf("failed to decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return mat, fmt.Errorf("decoded image is empty")
	}
	return mat, nil
}
