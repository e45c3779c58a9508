package bitbucket

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error is returned for every non-2xx response from the Bitbucket API
type Error struct {
	StatusCode int
	Method     string
	URL        string
	Message    string
	Detail     string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("bitbucket API error (%d) on %s %s: %s", e.StatusCode, e.Method, e.URL, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// NotFound reports whether the error carries a 404 status
func (e *Error) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an *Error
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// HasStatus reports whether err carries the given HTTP status
func HasStatus(err error, code int) bool {
	return StatusCode(err) == code
}

// IsNotFound reports whether err carries a 404 status
func IsNotFound(err error) bool {
	return HasStatus(err, http.StatusNotFound)
}

// errorBody is the envelope Bitbucket sends with non-2xx responses:
// {"type": "error", "error": {"message": ..., "detail": ...}}.
// Some proxies answer with a top-level "message" instead.
type errorBody struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// maxErrorBody caps how much of an error response is read
const maxErrorBody = 64 << 10

// newError builds *Error from a non-2xx response, falling back to the
// status text when the body carries no message.
func newError(method string, resp *http.Response) *Error {
	apiErr := &Error{
		StatusCode: resp.StatusCode,
		Method:     method,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = strings.TrimSpace(body.Error.Message)
		apiErr.Detail = strings.TrimSpace(body.Error.Detail)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(body.Message)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
