package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/spotdiff/internal/providers"
	"google.golang.org/api/option"
)

// DefaultModel is used when neither the caller nor GEMINI_MODEL names one
const DefaultModel = "gemini-2.5-flash"

// Gemini is a provider for Google Gemini
type Gemini struct{}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

// Generate sends the prompt and inline images to Gemini and returns the reply text
func (g *Gemini) Generate(ctx context.Context, config providers.Config) (string, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	if config.JSON {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = comparisonSchema()
	}

	parts := []genai.Part{genai.Text(config.Prompt)}
	for _, img := range config.Images {
		data, err := img.Bytes()
		if err != nil {
			return "", err
		}
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: data})
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format from Gemini")
	}

	return sb.String(), nil
}

// comparisonSchema constrains the reply to {summary, differences[{description, boundingBox}]}
func comparisonSchema() *genai.Schema {
	box := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeNumber},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": {Type: genai.TypeString},
			"differences": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"description": {Type: genai.TypeString},
						"boundingBox": {
							Type:        genai.TypeArray,
							Description: "one [x, y, width, height] box per image, in percent",
							Items:       box,
						},
					},
					Required: []string{"description", "boundingBox"},
				},
			},
		},
		Required: []string{"summary", "differences"},
	}
}
