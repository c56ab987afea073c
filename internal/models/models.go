package models

import (
	"encoding/json"
	"time"
)

// SourceImage is one user supplied image
type SourceImage struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	URL      string `json:"url"`
	Data     []byte `json:"-"`
}

// Empty reports whether the image is absent or has no content
func (s *SourceImage) Empty() bool {
	return s == nil || len(s.Data) == 0
}

// Box is [x, y, width, height] in percent of the image dimensions
type Box []float64

// Valid reports whether the box carries all four coordinates
func (b Box) Valid() bool {
	return len(b) == 4
}

// Difference is one discrepancy reported by the model.
// BoundingBox[0] belongs to the first image, BoundingBox[1] to the second.
type Difference struct {
	Description string `json:"description" yaml:"description"`
	BoundingBox []Box  `json:"boundingBox" yaml:"boundingBox,flow"`
}

// UnmarshalJSON decodes a difference from a model reply. A box that is not an
// array of numbers is kept as an absent (nil) entry instead of failing the reply.
func (d *Difference) UnmarshalJSON(data []byte) error {
	var raw struct {
		Description string          `json:"description"`
		BoundingBox json.RawMessage `json:"boundingBox"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Description = raw.Description
	d.BoundingBox = decodeBoxes(raw.BoundingBox)
	return nil
}

func decodeBoxes(data json.RawMessage) []Box {
	var items []json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &items) != nil || items == nil {
		return nil
	}
	boxes := make([]Box, len(items))
	for i, item := range items {
		var coords []float64
		if err := json.Unmarshal(item, &coords); err != nil {
			continue
		}
		boxes[i] = coords
	}
	return boxes
}

// BoxFor returns the box for the given image index, if present and well formed
func (d Difference) BoxFor(index int) (Box, bool) {
	if index < 0 || index >= len(d.BoundingBox) {
		return nil, false
	}
	box := d.BoundingBox[index]
	if !box.Valid() {
		return nil, false
	}
	return box, true
}

// ComparisonResult is the parsed reply of one comparison round trip
type ComparisonResult struct {
	Summary     string       `json:"summary" yaml:"summary"`
	Differences []Difference `json:"differences" yaml:"differences"`
}

// SessionState is where a session is in its compare lifecycle
type SessionState string

const (
	StateIdle           SessionState = "idle"
	StateImagesSelected SessionState = "images_selected"
	StateRequesting     SessionState = "requesting"
	StateResultReady    SessionState = "result_ready"
	StateFailed         SessionState = "failed"
)

// SessionView is the JSON representation of a session
type SessionView struct {
	ID        string            `json:"id"`
	State     SessionState      `json:"state"`
	Images    [2]*SourceImage   `json:"images"`
	Result    *ComparisonResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
