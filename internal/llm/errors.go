package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// APIError is a non-2xx answer from a model endpoint. Body is the raw response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status code %d: %s", e.StatusCode, e.Body)
}

// Remedies printed after a timeout. The dialogue command exposes both flags;
// question extraction runs on a fixed timeout.
const (
	dialogueTimeoutHint = "Consider increasing --timeout or reducing --max tokens."
	questionTimeoutHint = "Try again, or shorten the transcript and comments."
)

// TimeoutError means the model did not answer within the configured timeout.
// Hint is the remedy offered to the user, if any.
type TimeoutError struct {
	Timeout time.Duration
	Hint    string
	Err     error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("request timed out after %s.", e.Timeout)
	if e.Hint != "" {
		msg += " " + e.Hint
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
