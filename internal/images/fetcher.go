package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/spotdiff/internal/models"
)

// MaxImageSize is the largest accepted image, 10MB
const MaxImageSize = 10 * 1024 * 1024

var (
	ErrEmptyImage    = errors.New("image is empty")
	ErrImageTooLarge = fmt.Errorf("image too large (max %dMB)", MaxImageSize/1024/1024)
)

// decodable lists the image types the overlay renderer has decoders for
var decodable = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// Fetcher retrieves images from local paths or remote URLs
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// New validates data and builds a SourceImage. declaredType is trusted only
// when it is a type the renderer can decode; otherwise the content is sniffed.
func New(name string, data []byte, declaredType string) (*models.SourceImage, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	mimeType := strings.TrimSpace(strings.Split(declaredType, ";")[0])
	if !decodable[mimeType] {
		mimeType = http.DetectContentType(data)
	}
	if !decodable[mimeType] {
		return nil, fmt.Errorf("unsupported file type %q", mimeType)
	}

	return &models.SourceImage{
		Name:     name,
		MIMEType: mimeType,
		Data:     data,
	}, nil
}

// Open loads ref, which is either an http(s) URL or a local file path
func (f *Fetcher) Open(ctx context.Context, ref string) (*models.SourceImage, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return f.Fetch(ctx, ref)
	}
	return f.Load(ref)
}

// Load reads an image from disk
func (f *Fetcher) Load(filePath string) (*models.SourceImage, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.Size() > MaxImageSize {
		return nil, ErrImageTooLarge
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	slog.Debug("Loaded image", "path", filePath, "size", len(data))
	return New(filepath.Base(filePath), data, "")
}

// Fetch downloads an image from url
func (f *Fetcher) Fetch(ctx context.Context, url string) (*models.SourceImage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	// Extract filename from URL
	name := path.Base(strings.SplitN(url, "?", 2)[0])
	if name == "" || name == "/" || name == "." {
		name = "image"
	}

	slog.Debug("Downloaded image", "url", url, "size", len(data))
	return New(name, data, resp.Header.Get("Content-Type"))
}
