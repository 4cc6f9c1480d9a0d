package joke

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// ErrNoJoke is the single caller-visible failure of FetchJoke.
var ErrNoJoke = errors.New("no joke available")

// Reason classifies a failed request for logs and metrics.
type Reason string

const (
	ReasonAuth             Reason = "auth"
	ReasonNotFound         Reason = "not_found"
	ReasonUpstream         Reason = "upstream"
	ReasonTransport        Reason = "transport"
	ReasonBadResponse      Reason = "bad_response"
	ReasonUnexpectedStatus Reason = "unexpected_status"
)

const maxLoggedBody = 256

// Error describes a failed joke request. It matches ErrNoJoke with errors.Is.
type Error struct {
	Reason     Reason
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("joke api %s", e.Reason)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrNoJoke as a match.
func (e *Error) Is(target error) bool {
	return target == ErrNoJoke
}

func statusError(code int, body []byte) *Error {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxLoggedBody {
		snippet = snippet[:maxLoggedBody]
	}
	cause := fmt.Errorf("unexpected response %q", snippet)

	switch {
	case code == http.StatusUnauthorized:
		return &Error{Reason: ReasonAuth, StatusCode: code, Err: fmt.Errorf("authentication failed: %w", cause)}
	case code == http.StatusForbidden:
		return &Error{Reason: ReasonAuth, StatusCode: code, Err: fmt.Errorf("access forbidden: %w", cause)}
	case code == http.StatusNotFound:
		return &Error{Reason: ReasonNotFound, StatusCode: code, Err: fmt.Errorf("endpoint not found: %w", cause)}
	case code >= 500:
		return &Error{Reason: ReasonUpstream, StatusCode: code, Err: fmt.Errorf("server error: %w", cause)}
	default:
		return &Error{Reason: ReasonUnexpectedStatus, StatusCode: code, Err: cause}
	}
}

func classifyTransportError(err error) *Error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &Error{Reason: ReasonAuth, Err: fmt.Errorf("acquire token: %w", err)}
	}

	timeout := errors.Is(err, context.DeadlineExceeded)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		timeout = true
	}

	return &Error{Reason: ReasonTransport, Timeout: timeout, Err: err}
}
