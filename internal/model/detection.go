package model

import (
	"fmt"
	"image"
	"math"
)

// Detection is one labeled, scored region of a frame. X, Y, Width and Height are frame pixels.
type Detection struct {
	Label  string  `json:"label"`
	Score  float64 `json:"score"`
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
}

// Rect returns the detection box as an image.Rectangle.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

// Caption is the text drawn next to the box, e.g. "cup (87%)".
func (d Detection) Caption() string {
	return fmt.Sprintf("%s (%d%%)", d.Label, int(math.Round(d.Score*100)))
}

// CaptionOrigin is where the caption baseline starts: just above the box,
// or pinned to y=10 when the box touches the top edge.
func (d Detection) CaptionOrigin() image.Point {
	if d.Y > 10 {
		return image.Pt(d.X, d.Y-5)
	}
	return image.Pt(d.X, 10)
}

// Detections is the ordered output of one detector run.
type Detections []Detection

// Top returns the most confident detection. The first one wins a tie.
// ok is false when the list is empty.
func (ds Detections) Top() (top Detection, ok bool) {
	for i, d := range ds {
		if i == 0 || d.Score > top.Score {
			top = d
		}
	}
	return top, len(ds) > 0
}

// TopLabel returns the label of the most confident detection, or "" when nothing was detected.
func (ds Detections) TopLabel() string {
	top, ok := ds.Top()
	if !ok {
		return ""
	}
	return top.Label
}
