package integrations

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperr "github.com/matzehuels/factoryflow/pkg/errors"
	"github.com/matzehuels/factoryflow/pkg/httputil"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a create collides with an existing resource.
	ErrConflict = errors.New("resource already exists")

	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors,
	// unexpected status codes).
	ErrNetwork = errors.New("network error")
)

// maxErrorBody caps how much of an error response is kept in the message.
const maxErrorBody = 512

// StatusError is a response whose status was not expected.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Unwrap maps the status onto the package's sentinel errors.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrNetwork
	}
}

func codeForStatus(status int) apperr.Code {
	switch {
	case status == http.StatusNotFound:
		return apperr.ErrCodeNotFound
	case status == http.StatusConflict:
		return apperr.ErrCodeConflict
	case status == http.StatusUnauthorized:
		return apperr.ErrCodeUnauthorized
	case status == http.StatusForbidden:
		return apperr.ErrCodeForbidden
	case status == http.StatusTooManyRequests:
		return apperr.ErrCodeRateLimited
	case status == http.StatusGatewayTimeout:
		return apperr.ErrCodeTimeout
	default:
		return apperr.ErrCodeNetwork
	}
}

// checkStatus returns nil when resp's status is one of expect (any 2xx when
// expect is empty). Otherwise it drains a bounded part of the body into a
// [StatusError]; 5xx and 429 are marked retryable.
func checkStatus(req *http.Request, resp *http.Response, expect []int) error {
	if len(expect) == 0 && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	for _, code := range expect {
		if resp.StatusCode == code {
			return nil
		}
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	serr := &StatusError{
		Method: req.Method,
		Path:   req.URL.Path,
		Status: resp.StatusCode,
		Body:   strings.TrimSpace(string(body)),
	}
	err := apperr.Wrap(codeForStatus(resp.StatusCode), serr, "%s %s failed with status %d", req.Method, req.URL.Path, resp.StatusCode)
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &httputil.RetryableError{Err: err}
	}
	return err
}
