// Package testutil provides testing utilities for the AniList crawler.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// GraphQLRequest is a decoded request body received by the mock server.
type GraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// MockResponse defines one canned response of the mock server.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAniList is a configurable mock AniList GraphQL server. Responses are
// served from a FIFO script; when the script is empty, a custom handler or
// the default empty-data response takes over. The crawl is single-threaded,
// so a scripted sequence maps one-to-one onto the requests a test expects.
type MockAniList struct {
	server  *httptest.Server
	mu      sync.Mutex
	script  []MockResponse
	handler func(w http.ResponseWriter, req GraphQLRequest)

	// Tracking
	RequestCount int
	Requests     []GraphQLRequest
}

// NewMockAniList creates a new mock AniList server.
func NewMockAniList() *MockAniList {
	mock := &MockAniList{}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GraphQLRequest
		if body, err := io.ReadAll(r.Body); err == nil {
			_ = json.Unmarshal(body, &req)
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, req)

		var resp *MockResponse
		if len(mock.script) > 0 {
			resp = &mock.script[0]
			mock.script = mock.script[1:]
		}
		handler := mock.handler
		mock.mu.Unlock()

		if resp != nil {
			writeResponse(w, *resp)
			return
		}
		if handler != nil {
			handler(w, req)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"data": {}}`)
	}))

	return mock
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	w.Header().Set("Content-Type", "application/json")
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		fmt.Fprint(w, resp.Body)
	}
}

// URL returns the mock server URL.
func (m *MockAniList) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAniList) Close() {
	m.server.Close()
}

// Reset clears the script and all tracking state.
func (m *MockAniList) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = nil
	m.handler = nil
	m.RequestCount = 0
	m.Requests = nil
}

// Enqueue appends responses to the script. They are served in order, one per
// request.
func (m *MockAniList) Enqueue(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, responses...)
}

// SetHandler installs a fallback handler consulted when the script is empty.
func (m *MockAniList) SetHandler(handler func(w http.ResponseWriter, req GraphQLRequest)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// GetRequestCount returns the number of requests received.
func (m *MockAniList) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// ListEntry is one completed-list entry used to build response bodies.
type ListEntry struct {
	MediaID int
	Title   string
	Score   int
}

// UserList is one user's aliased payload in a multi-user response. Null
// models the upstream returning null for a private/missing user inside an
// otherwise successful batch.
type UserList struct {
	Null    bool
	Entries []ListEntry
}

// CompleterEntry is one mediaList entry of a completers page.
type CompleterEntry struct {
	UserID int
	Score  int
}

// PageData is one aliased page of a completers response.
type PageData struct {
	Page        int
	Entries     []CompleterEntry
	HasNextPage bool
}

// CompletedListsBody builds a multi-user completed-list response body. Users
// are keyed u1..uN in argument order.
func CompletedListsBody(users ...UserList) string {
	data := make(map[string]any, len(users))
	for i, u := range users {
		alias := fmt.Sprintf("u%d", i+1)
		if u.Null {
			data[alias] = nil
			continue
		}
		entries := make([]map[string]any, 0, len(u.Entries))
		for _, e := range u.Entries {
			entries = append(entries, map[string]any{
				"mediaId": e.MediaID,
				"media":   map[string]any{"title": map[string]any{"romaji": e.Title}},
				"score":   e.Score,
			})
		}
		data[alias] = map[string]any{
			"lists": []any{map[string]any{"entries": entries}},
		}
	}
	return marshalBody(map[string]any{"data": data})
}

// PlanningBody builds a planning-list response body.
func PlanningBody(titles map[int]string) string {
	entries := make([]map[string]any, 0, len(titles))
	for mediaID, title := range titles {
		entries = append(entries, map[string]any{
			"mediaId": mediaID,
			"media":   map[string]any{"title": map[string]any{"romaji": title}},
		})
	}
	return marshalBody(map[string]any{
		"data": map[string]any{
			"MediaListCollection": map[string]any{
				"lists": []any{map[string]any{"entries": entries}},
			},
		},
	})
}

// CompletersBody builds a paginated completers response body from the given
// pages, keyed p{page}.
func CompletersBody(pages ...PageData) string {
	data := make(map[string]any, len(pages))
	for _, p := range pages {
		mediaList := make([]map[string]any, 0, len(p.Entries))
		for _, e := range p.Entries {
			mediaList = append(mediaList, map[string]any{
				"userId": e.UserID,
				"score":  e.Score,
			})
		}
		data[fmt.Sprintf("p%d", p.Page)] = map[string]any{
			"pageInfo": map[string]any{
				"currentPage": p.Page,
				"hasNextPage": p.HasNextPage,
			},
			"mediaList": mediaList,
		}
	}
	return marshalBody(map[string]any{"data": data})
}

func marshalBody(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal response body: %v", err))
	}
	return string(b)
}

// NewOKResponse creates a 200 response with the given body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

// NewPrivateUserResponse creates the 404 the upstream sends for a private
// user.
func NewPrivateUserResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"errors": [{"message": "Private User", "status": 404}], "data": null}`,
	}
}

// NewUserNotFoundResponse creates the 404 the upstream sends for an unknown
// user.
func NewUserNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"errors": [{"message": "User not found", "status": 404}], "data": null}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
	}
}

// NewRateLimitResponse creates the 429 the upstream sends when the request
// budget is exceeded.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Too Many Requests"}`,
		Headers:    map[string]string{"Retry-After": "60"},
	}
}
