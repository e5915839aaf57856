// Package response turns raw model output into the typed generation
// contract: Clean strips transport noise and parses the JSON payload,
// Materialize converts function-shaped string fields into typed
// definitions without a JavaScript parser.
package response

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/intelligent-react-components/irc-server/internal/request"
)

var (
	fenceRe        = regexp.MustCompile("```(json|javascript)?")
	nonPrintableRe = regexp.MustCompile(`[^\x20-\x7E]`)
)

// ParseError marks model output that was not valid JSON after
// cleaning. It is the single largest source of pipeline failure and is
// retryable; the cleaned text is kept for the feedback re-prompt.
type ParseError struct {
	Cleaned string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CleanText strips code-fence markers, replaces every character
// outside the printable ASCII range with a single space, and trims.
// The non-ASCII scrub can alter legitimate Unicode content inside
// string values; the behavior is preserved from the original contract.
func CleanText(raw string) string {
	cleaned := fenceRe.ReplaceAllString(raw, "")
	cleaned = nonPrintableRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Clean parses raw model text into an AIResponse. On success exactly
// one of the error branch (populated fields) or the response branch is
// authoritative; callers must check HasError before using Response.
func Clean(raw string) (*request.AIResponse, error) {
	cleaned := CleanText(raw)

	var parsed request.AIResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &ParseError{Cleaned: cleaned, Err: err}
	}
	return &parsed, nil
}
