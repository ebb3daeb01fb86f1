package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"adindex/internal/models"
)

// excerptLen bounds how much of a bad response a ParseError carries.
const excerptLen = 500

// ErrMalformedResult signals a response that parsed as JSON but lacks the
// dimensions the pipeline requires. Raised by callers after Parse, not by
// the parser itself.
var ErrMalformedResult = errors.New("analysis result is missing required dimensions")

// ParseError reports a model response that could not be turned into a
// structured result. Excerpt holds the beginning of the slice that failed
// to parse, for diagnosis.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no JSON found in response: %s", e.Excerpt)
	}
	return fmt.Sprintf("failed to parse JSON response: %v\n\nResponse:\n%s", e.Err, e.Excerpt)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractJSON slices the single JSON object out of a free-form model
// response. A fenced block tagged json wins, then any fenced block, then
// the span from the first '{' to the last '}'.
func ExtractJSON(response string) (string, error) {
	if idx := strings.Index(response, "```json"); idx != -1 {
		start := idx + len("```json")
		end := strings.Index(response[start:], "```")
		if end != -1 {
			return strings.TrimSpace(response[start : start+end]), nil
		}
	}

	if idx := strings.Index(response, "```"); idx != -1 {
		start := idx + len("```")
		end := strings.Index(response[start:], "```")
		if end != -1 {
			return strings.TrimSpace(response[start : start+end]), nil
		}
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", &ParseError{Excerpt: excerpt(response)}
	}
	return response[start : end+1], nil
}

// Parse extracts and decodes the model's JSON reply. It never fabricates
// partial or default data: any failure is a ParseError carrying a
// diagnostic excerpt. Schema-level validation is the caller's job.
func Parse(response string) (*models.ModelResponse, error) {
	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var result models.ModelResponse
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, &ParseError{Excerpt: excerpt(jsonStr), Err: err}
	}
	return &result, nil
}

func excerpt(s string) string {
	if len(s) <= excerptLen {
		return s
	}
	return s[:excerptLen]
}
