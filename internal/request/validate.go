package request

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// filenameSafe matches cache keys that are safe as a file base name.
var filenameSafe = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9._-]*$`)

// Normalize fills defaults in place: element defaults to button.
func (r *GenerationRequest) Normalize() {
	if r.Element == "" {
		r.Element = ElementButton
	}
}

// Validate checks required keys and types. Violations are returned as
// the structured error payload the UI renders inline, not as an
// exception; nil means the request is processable.
func (r *GenerationRequest) Validate() *ErrorDetail {
	var missing []string
	if strings.TrimSpace(r.Prompt) == "" {
		missing = append(missing, "prompt")
	}
	if strings.TrimSpace(r.Filename) == "" {
		missing = append(missing, "filename")
	}
	if strings.TrimSpace(r.Listener) == "" {
		missing = append(missing, "listener")
	}
	if len(missing) > 0 {
		return &ErrorDetail{
			Message: "required keys are missing",
			Status:  http.StatusBadRequest,
			Details: fmt.Sprintf("The following keys are missing: %s.", strings.Join(missing, ", ")),
			Code:    "MISSING_KEYS",
		}
	}

	if !r.Element.Valid() {
		return &ErrorDetail{
			Message: "invalid element kind",
			Status:  http.StatusBadRequest,
			Details: fmt.Sprintf("element must be one of button, input or form, got %q", r.Element),
			Code:    "INVALID_ELEMENT",
		}
	}

	if !filenameSafe.MatchString(r.Filename) {
		return &ErrorDetail{
			Message: "filename is not filesystem-safe",
			Status:  http.StatusBadRequest,
			Details: fmt.Sprintf("filename %q may only contain letters, digits, '.', '_' and '-'", r.Filename),
			Code:    "INVALID_FILENAME",
		}
	}

	return nil
}
