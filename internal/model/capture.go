package model

import "time"

// Capture is a stored, annotated frame together with what was matched for it.
type Capture struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Label      string    `json:"label"`
	OfferCount int       `json:"offer_count"`
	Timestamp  time.Time `json:"timestamp"`
	FilePath   string    `json:"filepath"`
	FileSize   int64     `json:"filesize"`
}

// CaptureDetection is a detection row belonging to a Capture.
type CaptureDetection struct {
	ID        int64   `json:"id"`
	CaptureID string  `json:"capture_id"`
	Label     string  `json:"label"`
	X         int     `json:"x"`
	Y         int     `json:"y"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Score     float64 `json:"score"`
}

// CaptureFilter narrows capture history queries. Zero values disable a condition.
type CaptureFilter struct {
	Label  string
	After  time.Time
	Before time.Time
	Limit  int
	Offset int
}
