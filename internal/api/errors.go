// Package api provides an HTTP client for the Google Drive v3 API
// with automatic retry, rate limiting, and error classification.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, api.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("api: bad request")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrConflict     = errors.New("api: conflict")
	ErrRateLimited  = errors.New("api: rate limited")
	ErrServerError  = errors.New("api: server error")
)

// CallError wraps a sentinel error with HTTP status code, the Drive API
// error reason, and the API error message for debugging.
type CallError struct {
	StatusCode int
	Reason     string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *CallError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api: HTTP %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}

	return fmt.Sprintf("api: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// driveErrorBody mirrors the Drive API error response JSON.
type driveErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// newCallError builds a CallError from an error response body.
// The Drive API wraps error details in {"error": {...}}; when the body
// is not parseable JSON it is kept verbatim as the message.
func newCallError(statusCode int, body []byte) *CallError {
	ce := &CallError{
		StatusCode: statusCode,
		Message:    string(body),
		Err:        classifyStatus(statusCode),
	}

	var deb driveErrorBody
	if err := json.Unmarshal(body, &deb); err == nil && deb.Error.Message != "" {
		ce.Message = deb.Error.Message
		if len(deb.Error.Errors) > 0 {
			ce.Reason = deb.Error.Errors[0].Reason
		}
	}

	return ce
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
// 403 is not retried even though Drive signals per-user rate limits with it:
// distinguishing those from permission errors requires parsing the body,
// and the caller-visible Retry-After handling on 429 covers modern quota
// responses.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
