package dto

import "offerlens/internal/model"

// NothingDetected is the message returned when the detector found no objects.
const NothingDetected = "Nothing Detected"

// CaptureResult is returned to the browser after a captured frame was processed.
type CaptureResult struct {
	ID         string            `json:"id"`
	Label      string            `json:"label"`
	Detected   bool              `json:"detected"`
	Detections model.Detections  `json:"detections"`
	Offers     []model.OfferCard `json:"offers"`
	Image      string            `json:"image,omitempty"` // base64 JPEG with boxes drawn
	Message    string            `json:"message,omitempty"`
}
