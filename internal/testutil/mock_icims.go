// Package testutil provides testing utilities for the iCIMS client.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// TokenPath is the path of the mock OAuth token endpoint.
const TokenPath = "/oauth/token"

// CustomerID is the customer id used by the mock API.
const CustomerID = "9999"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// MockICIMS is a configurable mock iCIMS API (token endpoint plus customer API).
type MockICIMS struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	requests []RecordedRequest

	tokenCount int
}

// NewMockICIMS creates a new mock iCIMS server. The token endpoint hands out
// "token-1", "token-2", ... on each exchange.
func NewMockICIMS() *MockICIMS {
	mock := &MockICIMS{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		if r.URL.Path == TokenPath {
			mock.tokenHandler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"errors":[{"errorCode":404,"errorMessage":"no mock for %s %s"}]}`, r.Method, r.URL.Path)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockICIMS) URL() string {
	return m.server.URL
}

// TokenURL returns the mock OAuth token endpoint.
func (m *MockICIMS) TokenURL() string {
	return m.server.URL + TokenPath
}

// BaseURL returns the customer API root.
func (m *MockICIMS) BaseURL() string {
	return m.server.URL + "/customers/" + CustomerID
}

// APIPath returns the server path of a customer API path.
func (m *MockICIMS) APIPath(path string) string {
	return "/customers/" + CustomerID + "/" + strings.TrimLeft(path, "/")
}

// Close shuts down the mock server.
func (m *MockICIMS) Close() {
	m.server.Close()
}

// Reset clears recorded requests and the token counter.
func (m *MockICIMS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.tokenCount = 0
}

// SetHandler sets a custom handler for a path. The key is either "PATH" or "METHOD PATH".
func (m *MockICIMS) SetHandler(key string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key] = handler
}

// SetResponse configures a fixed response for a path key.
func (m *MockICIMS) SetResponse(key string, resp MockResponse) {
	m.SetHandler(key, ResponseHandler(resp))
}

// SetSequence serves the responses in order; the last one repeats.
func (m *MockICIMS) SetSequence(key string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(key, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		i := next
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()
		ResponseHandler(responses[i])(w, r)
	})
}

// ResponseHandler returns a handler writing resp.
func ResponseHandler(resp MockResponse) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if len(resp.Body) > 0 {
			w.Write(resp.Body)
		}
	}
}

// Requests returns the recorded requests, optionally filtered by path.
func (m *MockICIMS) Requests(path string) []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RecordedRequest, 0, len(m.requests))
	for _, r := range m.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// GetRequestCount returns the number of requests made to a path ("" for all).
func (m *MockICIMS) GetRequestCount(path string) int {
	return len(m.Requests(path))
}

// GetTokenCount returns the number of successful token exchanges served.
func (m *MockICIMS) GetTokenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokenCount
}

func (m *MockICIMS) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_request","error_description":"unsupported grant"}`))
		return
	}
	if r.PostForm.Get("client_secret") == "wrong" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"access_denied","error_description":"Unauthorized"}`))
		return
	}

	m.mu.Lock()
	m.tokenCount++
	n := m.tokenCount
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"access_token":"token-%d","token_type":"Bearer","expires_in":86400}`, n)
}

// JSONResponse creates a 200 OK JSON response.
func JSONResponse(v any) MockResponse {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// BinaryResponse creates a 200 OK response with the given content type.
func BinaryResponse(contentType string, data []byte) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers:    map[string]string{"Content-Type": contentType},
	}
}

// ErrorResponse creates an iCIMS-style error response.
func ErrorResponse(status int, message string) MockResponse {
	body, _ := json.Marshal(map[string]any{
		"errors": []map[string]any{{"errorCode": status, "errorMessage": message}},
	})
	return MockResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// RateLimitResponse creates a 429 Too Many Requests response.
func RateLimitResponse() MockResponse {
	resp := ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	resp.Headers["X-RateLimit-Remaining"] = "30"
	resp.Headers["X-RateLimit-Reset"] = "60"
	return resp
}

// StaticTokens is a TokenSource returning a fixed header, counting invalidations.
type StaticTokens struct {
	mu            sync.Mutex
	Header        string
	Invalidations int
}

// AuthHeader returns the fixed header.
func (s *StaticTokens) AuthHeader(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Header == "" {
		return "Bearer static", nil
	}
	return s.Header, nil
}

// Invalidate records an invalidation.
func (s *StaticTokens) Invalidate(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Invalidations++
}
