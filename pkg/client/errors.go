package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/icims-client/pkg/ratelimit"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrRequestBlocked is returned when the rate limit tracker refuses a request.
	ErrRequestBlocked = errors.New("request blocked: rate limit critical")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (except 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a non-success response from the iCIMS API.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Method     string
	Endpoint   string
	Message    string

	// Header holds the response headers; document endpoints signal a missing file
	// through the content type of an error response.
	Header http.Header

	// Body is the (truncated) response body.
	Body []byte

	Err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "icims %s error (status %d)", e.ErrorClass, e.StatusCode)
	if e.Method != "" || e.Endpoint != "" {
		fmt.Fprintf(&b, " %s %s", e.Method, e.Endpoint)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of err if it is (or wraps) an *APIError, else 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// resetAfter returns the rate-limit window reset announced on an API error response,
// or 0 when there is none.
func resetAfter(err error) time.Duration {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Header == nil {
		return 0
	}
	secs, convErr := strconv.Atoi(apiErr.Header.Get(ratelimit.HeaderReset))
	if convErr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// errorBody mirrors the iCIMS error envelope:
// {"errors":[{"errorCode":7,"errorMessage":"..."}]}
type errorBody struct {
	Errors []struct {
		ErrorCode    int    `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"errors"`
}

// messageFromBody extracts a readable message from an error response body.
func messageFromBody(status string, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Errors) > 0 {
		msgs := make([]string, 0, len(eb.Errors))
		for _, e := range eb.Errors {
			if e.ErrorMessage != "" {
				msgs = append(msgs, e.ErrorMessage)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return status
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx errors will not succeed on retry
		return false
	}
}

// classifyStatus maps an HTTP status to an ErrorClass ("" for success).
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
