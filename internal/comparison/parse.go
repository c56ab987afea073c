package comparison

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/lehigh-university-libraries/spotdiff/internal/models"
)

var (
	errNoJSONObject   = errors.New("reply does not contain a JSON object")
	errMissingSummary = errors.New(`reply is missing "summary"`)
	errMissingDiffs   = errors.New(`reply is missing "differences"`)
)

// ExtractJSON returns the text between the first '{' and the last '}' of reply, inclusive.
// The model may wrap its JSON in prose or code fences; anything outside the braces is dropped.
func ExtractJSON(reply string) (string, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || end < start {
		return "", &ResponseParseError{Reply: reply, Err: errNoJSONObject}
	}
	return reply[start : end+1], nil
}

// ParseReply extracts and decodes the comparison result from a model reply
func ParseReply(reply string) (*models.ComparisonResult, error) {
	payload, err := ExtractJSON(reply)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Summary     *string              `json:"summary"`
		Differences *[]models.Difference `json:"differences"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, &ResponseParseError{Reply: reply, Err: err}
	}
	if raw.Summary == nil {
		return nil, &ResponseParseError{Reply: reply, Err: errMissingSummary}
	}
	if raw.Differences == nil {
		return nil, &ResponseParseError{Reply: reply, Err: errMissingDiffs}
	}

	return &models.ComparisonResult{
		Summary:     *raw.Summary,
		Differences: *raw.Differences,
	}, nil
}
