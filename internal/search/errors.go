package search

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	// ErrTransport is returned when the search engine cannot be reached
	// (connection refused, DNS failure, request timeout).
	ErrTransport = errors.New("search engine unreachable")

	// ErrSerialization is returned when a request body cannot be encoded.
	ErrSerialization = errors.New("failed to encode search engine request")

	// ErrDeserialization is returned when a response body cannot be decoded,
	// including hits that do not match the expected document shape.
	ErrDeserialization = errors.New("failed to decode search engine response")

	// ErrInconsistentState is returned when an indexed document contradicts its own
	// source fields, e.g. a matched filter path with no corresponding source value.
	ErrInconsistentState = errors.New("search document is inconsistent with its source")

	// ErrTimeout is returned when an asynchronous task does not reach a terminal
	// state before the await deadline.
	ErrTimeout = errors.New("search task did not complete in time")
)

// EngineError is returned when the search engine rejects a request with a
// non-2xx status code.
type EngineError struct {
	StatusCode int
	Method     string
	URL        string
	// Code is the engine's machine readable error code, when present.
	Code string
	// Message is the engine's human readable message, when present.
	Message string
	Body    []byte
}

// NewEngineError builds an EngineError from a response status and body.
func NewEngineError(statusCode int, method, url string, body []byte) *EngineError {
	e := &EngineError{
		StatusCode: statusCode,
		Method:     method,
		URL:        url,
		Body:       body,
	}
	if gjson.ValidBytes(body) {
		e.Code = gjson.GetBytes(body, "code").String()
		e.Message = gjson.GetBytes(body, "message").String()
	}
	return e
}

func (e *EngineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("search engine rejected %s %s: HTTP %d (%s): %s",
			e.Method, e.URL, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("search engine rejected %s %s: HTTP %d %s",
		e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsClientError reports whether the engine answered with a 4xx status.
func (e *EngineError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError reports whether the engine answered with a 5xx status.
func (e *EngineError) IsServerError() bool {
	return e.StatusCode >= 500
}

// IsNotFound reports whether err is an EngineError with a 404 status.
func IsNotFound(err error) bool {
	var engineErr *EngineError
	return errors.As(err, &engineErr) && engineErr.StatusCode == http.StatusNotFound
}

// isRetryable reports whether a failed call may be attempted again.
// Only transport failures and server-side rejections are retried.
func isRetryable(err error) bool {
	if errors.Is(err, ErrTransport) {
		return true
	}
	var engineErr *EngineError
	return errors.As(err, &engineErr) && engineErr.IsServerError()
}
