package overlay

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"
)

// Marker is a drawn difference marker, in pixel space
type Marker struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Description string  `json:"description"`
}

// Surface is a drawing canvas sized to the image rendered onto it.
// Every Reset discards the previous drawing.
type Surface struct {
	dc      *gg.Context
	markers []Marker
}

func NewSurface() *Surface {
	return &Surface{dc: gg.NewContext(1, 1)}
}

// Reset resizes the surface to width x height and clears it
func (s *Surface) Reset(width, height int) {
	s.dc = gg.NewContext(width, height)
	s.markers = nil
}

func (s *Surface) Width() int {
	return s.dc.Width()
}

func (s *Surface) Height() int {
	return s.dc.Height()
}

// Markers returns the markers drawn since the last Reset
func (s *Surface) Markers() []Marker {
	return append([]Marker(nil), s.markers...)
}

func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

func (s *Surface) EncodePNG(w io.Writer) error {
	if err := s.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode overlay: %w", err)
	}
	return nil
}
