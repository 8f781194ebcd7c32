package upstream

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/agenthands/insightflow/internal/core/model"
)

// ErrMissingTranscript is model.ErrMissingTranscript, re-exported for callers
// that only import this package.
var ErrMissingTranscript = model.ErrMissingTranscript

// StatusError is a non-2xx response.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: upstream returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether err is a 404 from upstream.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// mentionsTranscript recognizes the validation responses upstream sends for
// a session without a transcript.
func mentionsTranscript(status int, body []byte) bool {
	if status != http.StatusBadRequest && status != http.StatusUnprocessableEntity {
		return false
	}
	return bytes.Contains(bytes.ToLower(body), []byte("transcript"))
}
