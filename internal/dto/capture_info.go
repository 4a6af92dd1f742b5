package dto

import (
	"encoding/json"
	"time"
)

// CaptureInfo is one entry of the capture history listing.
type CaptureInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	TimeOfDay  time.Time `json:"timeOfDay"`
	Label      string    `json:"label"`
	OfferCount int       `json:"offerCount"`
	Objects    []string  `json:"objects"`
}

// MarshalJSON formats date and time-of-day the way the gallery page displays them.
func (c CaptureInfo) MarshalJSON() ([]byte, error) {
	type Alias CaptureInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      c.Date.Format("02-01-2006"),
		TimeOfDay: c.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(c),
	})
}

// CapturesPage is a paginated capture history response.
type CapturesPage struct {
	Captures    []CaptureInfo `json:"captures"`
	Size        int64         `json:"size"`
	Length      int           `json:"length"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Limit       int           `json:"pageSize"`
}
