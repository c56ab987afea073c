package overlay

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"strconv"

	"github.com/lehigh-university-libraries/spotdiff/internal/metrics"
	"github.com/lehigh-university-libraries/spotdiff/internal/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const MarkerRadius = 10.0

var HighlightColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}

// Source supplies encoded image bytes to the renderer
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

type bytesSource []byte

func (b bytesSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// FromBytes wraps encoded image data as a Source
func FromBytes(data []byte) Source {
	return bytesSource(data)
}

// Decoded is the outcome of an image decode
type Decoded struct {
	Image image.Image
	Err   error
}

// Decode starts decoding src in the background. The returned channel
// receives exactly one value and is then closed.
func Decode(ctx context.Context, src Source) <-chan Decoded {
	out := make(chan Decoded, 1)
	go func() {
		defer close(out)

		rc, err := src.Open(ctx)
		if err != nil {
			out <- Decoded{Err: fmt.Errorf("failed to open image: %w", err)}
			return
		}
		defer rc.Close()

		img, _, err := image.Decode(rc)
		if err != nil {
			out <- Decoded{Err: fmt.Errorf("failed to decode image: %w", err)}
			return
		}
		out <- Decoded{Image: img}
	}()
	return out
}

// MarkerCenter converts a percentage box to the pixel position of its centre
func MarkerCenter(box models.Box, width, height int) (float64, float64) {
	x, y, w, h := box[0], box[1], box[2], box[3]
	cx := (x/100 + (w/100)/2) * float64(width)
	cy := (y/100 + (h/100)/2) * float64(height)
	return cx, cy
}

// Renderer draws difference markers over an image
type Renderer struct {
	Radius float64
	Color  color.Color
}

func NewRenderer() *Renderer {
	return &Renderer{
		Radius: MarkerRadius,
		Color:  HighlightColor,
	}
}

// Render decodes src, then redraws s from scratch with the image and one marker
// per difference at boundingBox[index]. Differences without a usable box for
// index are skipped. Boxes outside 0-100 are not clamped and may land off canvas.
func (r *Renderer) Render(ctx context.Context, s *Surface, src Source, diffs []models.Difference, index int) error {
	if index != 0 && index != 1 {
		return fmt.Errorf("invalid image index %d", index)
	}

	var decoded Decoded
	select {
	case <-ctx.Done():
		return ctx.Err()
	case decoded = <-Decode(ctx, src):
	}
	if decoded.Err != nil {
		metrics.OverlayRenders.WithLabelValues(strconv.Itoa(index), "error").Inc()
		return decoded.Err
	}

	r.draw(s, decoded.Image, diffs, index)
	metrics.OverlayRenders.WithLabelValues(strconv.Itoa(index), "ok").Inc()
	return nil
}

func (r *Renderer) draw(s *Surface, img image.Image, diffs []models.Difference, index int) {
	bounds := img.Bounds()
	s.Reset(bounds.Dx(), bounds.Dy())
	s.dc.DrawImage(img, 0, 0)

	skipped := 0
	for _, d := range diffs {
		box, ok := d.BoxFor(index)
		if !ok {
			skipped++
			continue
		}
		cx, cy := MarkerCenter(box, s.Width(), s.Height())
		s.dc.DrawCircle(cx, cy, r.Radius)
		s.dc.SetColor(r.Color)
		s.dc.Fill()
		s.markers = append(s.markers, Marker{X: cx, Y: cy, Description: d.Description})
	}

	if skipped > 0 {
		slog.Warn("Skipped differences without a bounding box", "index", index, "skipped", skipped)
	}
}
