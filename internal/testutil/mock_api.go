// Package testutil provides testing utilities for the wzstats client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// MockResponse defines the behavior for a mock API endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock stats API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	PathCounts        map[string]int
	LastRequestHeader http.Header
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		// Unknown paths behave like the real API for an unknown player
		writeResponse(w, NewErrorEnvelopeResponse("not found"))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific (decoded) path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		writeResponse(w, resp)
	})
}

// SetSequence serves the responses in order, repeating the last one.
func (m *MockAPI) SetSequence(path string, responses ...MockResponse) {
	var (
		mu sync.Mutex
		n  int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(n, len(responses)-1)]
		n++
		mu.Unlock()
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to one path.
func (m *MockAPI) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// ProfilePath returns the API path of a profile lookup.
func ProfilePath(platform, username string) string {
	return fmt.Sprintf("/stats/cod/v1/title/mw/platform/%s/gamer/%s/profile/type/wz", platform, username)
}

// MatchPagePath returns the API path of a match history page ending at endMillis.
func MatchPagePath(platform, username string, endMillis int64) string {
	return fmt.Sprintf("/crm/cod/v2/title/mw/platform/%s/gamer/%s/matches/wz/start/0/end/%d/details", platform, username, endMillis)
}

// MatchDetailPath returns the API path of a full match lookup.
func MatchDetailPath(platform, matchID, language string) string {
	return fmt.Sprintf("/crm/cod/v2/title/mw/platform/%s/fullMatch/wz/%s/%s", platform, matchID, language)
}

// NewSuccessResponse wraps data in a success envelope.
func NewSuccessResponse(data any) MockResponse {
	payload, err := json.Marshal(map[string]any{"status": "success", "data": data})
	if err != nil {
		panic(fmt.Sprintf("marshal mock payload: %v", err))
	}
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(payload),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewErrorEnvelopeResponse creates the HTTP 200 "status: error" response the
// API sends for unknown players, private profiles and the like.
func NewErrorEnvelopeResponse(message string) MockResponse {
	payload, _ := json.Marshal(map[string]any{
		"status": "error",
		"data":   map[string]string{"type": "com.activision.mt.common.stdtools.exceptions.NoStackTraceException", "message": message},
	})
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(payload),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter time.Duration) MockResponse {
	headers := map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
	if retryAfter > 0 {
		headers["Retry-After"] = strconv.Itoa(int(retryAfter.Seconds()))
	}
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status": "error", "data": {"message": "Too many requests"}}`,
		Headers:    headers,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `<html><body>Internal Server Error</body></html>`,
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}

// NewBadGatewayResponse creates a 502 Bad Gateway response.
func NewBadGatewayResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       "Bad Gateway",
	}
}

// NewForbiddenResponse creates a 403 Forbidden response.
func NewForbiddenResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"status": "error", "data": {"message": "Not permitted: not allowed"}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
