// Package testutil provides testing utilities for insight-engine: a
// configurable mock vendor REST server and scriptable fake analyzers.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock vendor endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockVendor is a configurable mock vendor REST server for testing.
type MockVendor struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	requestCount      int
	lastRequestHeader http.Header
	lastRequestBody   []byte
}

// NewMockVendor creates a new mock vendor server.
func NewMockVendor() *MockVendor {
	mock := &MockVendor{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		mock.mu.Lock()
		mock.requestCount++
		mock.lastRequestHeader = r.Header.Clone()
		mock.lastRequestBody = body
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		r.Body = io.NopCloser(bytes.NewReader(body))

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockVendor) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockVendor) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockVendor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.lastRequestHeader = nil
	m.lastRequestBody = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockVendor) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockVendor) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, resp.Write)
}

// Write serves resp on w.
func (resp MockResponse) Write(w http.ResponseWriter, r *http.Request) {
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// RequestCount returns the number of requests made to the server.
func (m *MockVendor) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockVendor) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// LastRequestBody returns the body of the most recent request.
func (m *MockVendor) LastRequestBody() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestBody
}

// DecodeLastRequest unmarshals the most recent request body into v.
func (m *MockVendor) DecodeLastRequest(v any) error {
	return json.Unmarshal(m.LastRequestBody(), v)
}

// defaultHandler answers unknown paths like a vendor gateway would.
func (m *MockVendor) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":{"code":"404","message":"Resource not found"}}`))
}

// NewJSONResponse creates a standard 200 OK JSON response.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewUnauthorizedResponse creates a 401 response as sent for a bad key.
func NewUnauthorizedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":{"code":"429","message":"Rate limit is exceeded."}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"Retry-After":  "1",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":{"code":"InternalServerError","message":"Internal server error"}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
