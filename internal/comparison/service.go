package comparison

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/spotdiff/internal/gemini"
	"github.com/lehigh-university-libraries/spotdiff/internal/metrics"
	"github.com/lehigh-university-libraries/spotdiff/internal/models"
	"github.com/lehigh-university-libraries/spotdiff/internal/ollama"
	"github.com/lehigh-university-libraries/spotdiff/internal/openai"
	"github.com/lehigh-university-libraries/spotdiff/internal/providers"
	"golang.org/x/sync/errgroup"
)

// Service submits image pairs to a model and parses the differences it reports
type Service struct {
	provider     providers.Provider
	providerName string
	model        string
	temperature  float64
}

// NewService returns a service bound to an explicit provider
func NewService(provider providers.Provider, providerName, model string) *Service {
	return &Service{
		provider:     provider,
		providerName: providerName,
		model:        model,
		temperature:  0.1, // Low temperature for consistent, factual output
	}
}

// NewServiceFromEnv resolves provider and model from arguments, falling back to
// SPOTDIFF_PROVIDER and the provider's *_MODEL variable
func NewServiceFromEnv(provider, model string) (*Service, error) {
	if provider == "" {
		provider = os.Getenv("SPOTDIFF_PROVIDER")
		if provider == "" {
			provider = "gemini"
		}
	}

	if model == "" {
		model = getDefaultModel(provider)
	}

	switch provider {
	case "gemini":
		return NewService(gemini.New(), provider, model), nil
	case "openai":
		return NewService(openai.New(), provider, model), nil
	case "ollama":
		return NewService(ollama.New(), provider, model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func getDefaultModel(provider string) string {
	switch provider {
	case "gemini":
		model := os.Getenv("GEMINI_MODEL")
		if model == "" {
			return gemini.DefaultModel
		}
		return model
	case "openai":
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-4o"
		}
		return model
	case "ollama":
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return "mistral-small3.2:24b"
		}
		return model
	default:
		return ""
	}
}

func (s *Service) Provider() string {
	return s.providerName
}

func (s *Service) Model() string {
	return s.model
}

// Compare asks the model for the differences between first and second.
// There is no retry; a failed attempt must be resubmitted by the caller.
func (s *Service) Compare(ctx context.Context, first, second models.SourceImage) (*models.ComparisonResult, error) {
	start := time.Now()
	result, err := s.compare(ctx, first, second)
	metrics.ObserveComparison(s.providerName, Outcome(err), time.Since(start))
	if err != nil {
		slog.Error("Comparison failed", "provider", s.providerName, "model", s.model, "err", err)
		return nil, err
	}
	slog.Info("Comparison complete", "provider", s.providerName, "model", s.model, "differences", len(result.Differences), "elapsed", time.Since(start))
	return result, nil
}

func (s *Service) compare(ctx context.Context, first, second models.SourceImage) (*models.ComparisonResult, error) {
	var missing []int
	if first.Empty() {
		missing = append(missing, 1)
	}
	if second.Empty() {
		missing = append(missing, 2)
	}
	if len(missing) > 0 {
		return nil, &MissingInputError{Slots: missing}
	}

	images, err := encodeImages(ctx, first, second)
	if err != nil {
		return nil, err
	}

	reply, err := s.provider.Generate(ctx, providers.Config{
		Model:       s.model,
		Temperature: s.temperature,
		Prompt:      buildComparisonPrompt(),
		Images:      images,
		JSON:        true,
	})
	if err != nil {
		if isOverloaded(err) {
			return nil, &ServiceOverloadedError{Err: err}
		}
		return nil, fmt.Errorf("failed to call %s: %w", s.providerName, err)
	}

	slog.Debug("Model reply received", "provider", s.providerName, "length", len(reply))
	return ParseReply(reply)
}

// encodeImages base64 encodes both images concurrently
func encodeImages(ctx context.Context, imgs ...models.SourceImage) ([]providers.InlineImage, error) {
	encoded := make([]providers.InlineImage, len(imgs))
	g, _ := errgroup.WithContext(ctx)
	for i, img := range imgs {
		g.Go(func() error {
			inline, err := encodeImage(img)
			if err != nil {
				return fmt.Errorf("image %d: %w", i+1, err)
			}
			encoded[i] = inline
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return encoded, nil
}

func encodeImage(img models.SourceImage) (providers.InlineImage, error) {
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(img.Data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return providers.InlineImage{}, fmt.Errorf("unsupported content type %q", mimeType)
	}
	return providers.InlineImage{
		MIMEType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}, nil
}

func buildComparisonPrompt() string {
	return `You are given two images. Compare them carefully and identify every visual difference between the first image and the second image.

For each difference, give a short description and the location of the difference in BOTH images as a bounding box.

A bounding box is [x, y, width, height], where x and y are the top-left corner, and every value is a percentage (0-100) of that image's width or height.

OUTPUT FORMAT:
Respond with ONLY a JSON object in the following format:

{
  "summary": "A one or two sentence overview of how the images differ",
  "differences": [
    {
      "description": "What is different",
      "boundingBox": [[x, y, width, height], [x, y, width, height]]
    }
  ]
}

The first box in "boundingBox" is the region in the first image, the second box is the corresponding region in the second image.
If the images are identical, return an empty "differences" array.`
}
