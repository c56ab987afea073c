package overlay

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/lehigh-university-libraries/spotdiff/internal/models"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func whitePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func isHighlight(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return r>>8 == 255 && g>>8 == 0 && b>>8 == 0 && a>>8 == 255
}

func isWhite(c color.Color) bool {
	r, g, b, a := c.RGBA()
	return r>>8 == 255 && g>>8 == 255 && b>>8 == 255 && a>>8 == 255
}

func TestMarkerCenter(t *testing.T) {
	tests := []struct {
		name          string
		box           models.Box
		width, height int
		wantX, wantY  float64
	}{
		{name: "centre of box on 200x100", box: models.Box{20, 30, 10, 10}, width: 200, height: 100, wantX: 50, wantY: 35},
		{name: "zero box at origin", box: models.Box{0, 0, 0, 0}, width: 100, height: 100, wantX: 0, wantY: 0},
		{name: "zero box in middle", box: models.Box{50, 50, 0, 0}, width: 100, height: 100, wantX: 50, wantY: 50},
		{name: "whole image", box: models.Box{0, 0, 100, 100}, width: 640, height: 480, wantX: 320, wantY: 240},
		{name: "negative coordinates stay off canvas", box: models.Box{-20, -10, 10, 0}, width: 100, height: 100, wantX: -15, wantY: -10},
		{name: "beyond 100 stays off canvas", box: models.Box{110, 0, 20, 0}, width: 100, height: 100, wantX: 120, wantY: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := MarkerCenter(tt.box, tt.width, tt.height)
			if math.Abs(x-tt.wantX) > 1e-9 || math.Abs(y-tt.wantY) > 1e-9 {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tt.wantX, tt.wantY, x, y)
			}
		})
	}
}

func TestRenderPlacesMarkersPerImage(t *testing.T) {
	diffs := []models.Difference{
		{Description: "d", BoundingBox: []models.Box{{0, 0, 0, 0}, {50, 50, 0, 0}}},
	}
	src := FromBytes(whitePNG(t, 100, 100))
	r := NewRenderer()

	first := NewSurface()
	if err := r.Render(context.Background(), first, src, diffs, 0); err != nil {
		t.Fatalf("Render(0) failed: %v", err)
	}
	if diff := cmp.Diff([]Marker{{X: 0, Y: 0, Description: "d"}}, first.Markers(), approx); diff != "" {
		t.Errorf("Markers for image 0 mismatch (-want +got):\n%s", diff)
	}
	if !isHighlight(first.Image().At(0, 0)) {
		t.Errorf("Expected marker colour at (0, 0), got %v", first.Image().At(0, 0))
	}

	second := NewSurface()
	if err := r.Render(context.Background(), second, src, diffs, 1); err != nil {
		t.Fatalf("Render(1) failed: %v", err)
	}
	if diff := cmp.Diff([]Marker{{X: 50, Y: 50, Description: "d"}}, second.Markers(), approx); diff != "" {
		t.Errorf("Markers for image 1 mismatch (-want +got):\n%s", diff)
	}
	if !isHighlight(second.Image().At(50, 50)) {
		t.Errorf("Expected marker colour at (50, 50), got %v", second.Image().At(50, 50))
	}
	if !isWhite(second.Image().At(10, 90)) {
		t.Errorf("Expected image pixel at (10, 90), got %v", second.Image().At(10, 90))
	}
}

func TestRenderSizesSurfaceToImage(t *testing.T) {
	diffs := []models.Difference{
		{Description: "d", BoundingBox: []models.Box{{20, 30, 10, 10}, {0, 0, 0, 0}}},
	}
	s := NewSurface()
	if err := NewRenderer().Render(context.Background(), s, FromBytes(whitePNG(t, 200, 100)), diffs, 0); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if s.Width() != 200 || s.Height() != 100 {
		t.Fatalf("Expected 200x100 surface, got %dx%d", s.Width(), s.Height())
	}
	if !isHighlight(s.Image().At(50, 35)) {
		t.Errorf("Expected marker colour at (50, 35), got %v", s.Image().At(50, 35))
	}
	if !isWhite(s.Image().At(150, 80)) {
		t.Errorf("Expected image pixel at (150, 80), got %v", s.Image().At(150, 80))
	}
}

func TestRenderReplacesPreviousDrawing(t *testing.T) {
	r := NewRenderer()
	s := NewSurface()

	firstDiffs := []models.Difference{{Description: "old", BoundingBox: []models.Box{{20, 20, 0, 0}, {20, 20, 0, 0}}}}
	if err := r.Render(context.Background(), s, FromBytes(whitePNG(t, 100, 100)), firstDiffs, 0); err != nil {
		t.Fatalf("First render failed: %v", err)
	}

	secondDiffs := []models.Difference{{Description: "new", BoundingBox: []models.Box{{80, 60, 0, 0}, {80, 60, 0, 0}}}}
	if err := r.Render(context.Background(), s, FromBytes(whitePNG(t, 120, 80)), secondDiffs, 0); err != nil {
		t.Fatalf("Second render failed: %v", err)
	}

	if s.Width() != 120 || s.Height() != 80 {
		t.Errorf("Expected 120x80 surface, got %dx%d", s.Width(), s.Height())
	}
	if diff := cmp.Diff([]Marker{{X: 96, Y: 48, Description: "new"}}, s.Markers(), approx); diff != "" {
		t.Errorf("Markers mismatch (-want +got):\n%s", diff)
	}
	// The old marker would sit at (24, 16) in the new pixel space
	if !isWhite(s.Image().At(24, 16)) {
		t.Errorf("Expected old marker to be gone, got %v", s.Image().At(24, 16))
	}
	if !isHighlight(s.Image().At(96, 48)) {
		t.Errorf("Expected new marker at (96, 48), got %v", s.Image().At(96, 48))
	}
}

func TestRenderSkipsMissingBoxes(t *testing.T) {
	diffs := []models.Difference{
		{Description: "only first", BoundingBox: []models.Box{{10, 10, 0, 0}}},
		{Description: "no boxes"},
		{Description: "short box", BoundingBox: []models.Box{{10, 10, 0, 0}, {10, 10}}},
		{Description: "null box", BoundingBox: []models.Box{{10, 10, 0, 0}, nil}},
		{Description: "ok", BoundingBox: []models.Box{{0, 0, 0, 0}, {40, 40, 20, 20}}},
	}

	s := NewSurface()
	if err := NewRenderer().Render(context.Background(), s, FromBytes(whitePNG(t, 100, 100)), diffs, 1); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if diff := cmp.Diff([]Marker{{X: 50, Y: 50, Description: "ok"}}, s.Markers(), approx); diff != "" {
		t.Errorf("Markers mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderOffCanvasBoxes(t *testing.T) {
	diffs := []models.Difference{
		{Description: "off", BoundingBox: []models.Box{{150, 150, 10, 10}}},
	}
	s := NewSurface()
	if err := NewRenderer().Render(context.Background(), s, FromBytes(whitePNG(t, 50, 50)), diffs, 0); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(s.Markers()) != 1 {
		t.Fatalf("Expected 1 marker, got %d", len(s.Markers()))
	}
	if !isWhite(s.Image().At(45, 45)) {
		t.Errorf("Expected off canvas marker not to be visible, got %v", s.Image().At(45, 45))
	}
}

func TestRenderDecodesBMPAndTIFF(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.White)
		}
	}

	encoders := map[string]func(io.Writer, image.Image) error{
		"bmp":  bmp.Encode,
		"tiff": func(w io.Writer, m image.Image) error { return tiff.Encode(w, m, nil) },
	}
	diffs := []models.Difference{{Description: "d", BoundingBox: []models.Box{{50, 50, 0, 0}}}}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := encode(&buf, img); err != nil {
				t.Fatalf("Failed to encode %s: %v", name, err)
			}
			s := NewSurface()
			if err := NewRenderer().Render(context.Background(), s, FromBytes(buf.Bytes()), diffs, 0); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if s.Width() != 40 || s.Height() != 20 {
				t.Errorf("Expected 40x20 surface, got %dx%d", s.Width(), s.Height())
			}
			if !isHighlight(s.Image().At(20, 10)) {
				t.Errorf("Expected marker at (20, 10), got %v", s.Image().At(20, 10))
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer()

	if err := r.Render(context.Background(), NewSurface(), FromBytes(whitePNG(t, 10, 10)), nil, 2); err == nil {
		t.Error("Expected error for image index 2")
	}

	if err := r.Render(context.Background(), NewSurface(), FromBytes([]byte("not an image")), nil, 0); err == nil {
		t.Error("Expected decode error")
	}
}

type blockingSource struct {
	release chan struct{}
}

func (b *blockingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	<-b.release
	return nil, errors.New("released")
}

func TestRenderStopsOnContextCancel(t *testing.T) {
	src := &blockingSource{release: make(chan struct{})}
	t.Cleanup(func() { close(src.release) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRenderer().Render(ctx, NewSurface(), src, nil, 0)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDecodeResolvesOnce(t *testing.T) {
	ch := Decode(context.Background(), FromBytes(whitePNG(t, 3, 2)))
	got, ok := <-ch
	if !ok {
		t.Fatal("Expected a decoded value")
	}
	if got.Err != nil {
		t.Fatalf("Unexpected error: %v", got.Err)
	}
	if b := got.Image.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Errorf("Expected 3x2 image, got %dx%d", b.Dx(), b.Dy())
	}
	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after one value")
	}
}

func TestSurfaceEncodePNG(t *testing.T) {
	s := NewSurface()
	s.Reset(4, 3)
	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	if cfg.Width != 4 || cfg.Height != 3 {
		t.Errorf("Expected 4x3, got %dx%d", cfg.Width, cfg.Height)
	}
}
