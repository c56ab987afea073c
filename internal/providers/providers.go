package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
)

// InlineImage is an image payload sent alongside the prompt
type InlineImage struct {
	MIMEType string
	// Data is the base64 (standard encoding) image content
	Data string
}

// Bytes decodes the base64 payload
func (i InlineImage) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(i.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inline image: %w", err)
	}
	return b, nil
}

// DataURL returns the payload as a data: URL
func (i InlineImage) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Data
}

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Images      []InlineImage
	// JSON asks the provider for a JSON-only reply where supported
	JSON bool
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Generate(ctx context.Context, config Config) (string, error)
}

// StatusError is returned by providers when the remote service answers with a non-success status
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
