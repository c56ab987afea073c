package comparison

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/spotdiff/internal/providers"
	"google.golang.org/api/googleapi"
)

// User facing messages, one per failure class
const (
	MessageMissingInput = "Please select both images before comparing."
	MessageOverloaded   = "The model is currently overloaded. Please try again later."
	MessageFailed       = "Failed to process the comparison. Please try again."
)

// MissingInputError means one or both images were absent. No request was made.
type MissingInputError struct {
	// Slots lists the missing image positions, 1-based
	Slots []int
}

func (e *MissingInputError) Error() string {
	parts := make([]string, 0, len(e.Slots))
	for _, s := range e.Slots {
		parts = append(parts, fmt.Sprintf("%d", s))
	}
	return "missing image " + strings.Join(parts, " and ")
}

// ServiceOverloadedError means the model service reported it is overloaded
type ServiceOverloadedError struct {
	Err error
}

func (e *ServiceOverloadedError) Error() string {
	return fmt.Sprintf("model service overloaded: %v", e.Err)
}

func (e *ServiceOverloadedError) Unwrap() error {
	return e.Err
}

// ResponseParseError means the reply did not contain a usable JSON object
type ResponseParseError struct {
	Reply string
	Err   error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("failed to parse model reply: %v", e.Err)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// UserMessage maps an error from Compare to the message shown to the user
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var missing *MissingInputError
	var overloaded *ServiceOverloadedError
	switch {
	case errors.As(err, &missing):
		return MessageMissingInput
	case errors.As(err, &overloaded):
		return MessageOverloaded
	default:
		return MessageFailed
	}
}

// Outcome is the metrics label for err
func Outcome(err error) string {
	var missing *MissingInputError
	var overloaded *ServiceOverloadedError
	var parse *ResponseParseError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &missing):
		return "missing_input"
	case errors.As(err, &overloaded):
		return "overloaded"
	case errors.As(err, &parse):
		return "parse_error"
	default:
		return "error"
	}
}

// isOverloaded recognises a 503 / UNAVAILABLE / "overloaded" status in a provider failure.
// The message is only inspected when the error carries no HTTP status.
func isOverloaded(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusServiceUnavailable
	}
	if code := providers.StatusCode(err); code != 0 {
		return code == http.StatusServiceUnavailable
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "503") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "unavailable")
}
