package repository

import "offerlens/internal/model"

// CaptureRepository defines the interface for capture history operations.
type CaptureRepository interface {
	// Create operations
	Insert(capture *model.Capture) error

	// Read operations
	GetByID(id string) (*model.Capture, error)
	GetByFilename(filename string) (*model.Capture, error)
	GetAll(filter *model.CaptureFilter) ([]model.Capture, error)
	GetTotalCount(filter *model.CaptureFilter) (int, error)
	GetTotalSize() (int64, error)

	// Delete operations
	DeleteByFilename(filename string) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection rows of a capture.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []model.CaptureDetection) error

	// Read operations
	GetByCaptureID(captureID string) ([]model.CaptureDetection, error)
	GetLabelsByCaptureID(captureID string) ([]string, error)
	GetAllLabels() ([]string, error)
}
