package dto

import (
	"time"

	"offerlens/internal/model"
)

// BufferedCapture holds an annotated frame and its results before flushing to disk.
type BufferedCapture struct {
	ID         string
	Timestamp  time.Time
	Label      string
	OfferCount int
	Detections model.Detections
	Data       []byte
}
