package anilist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/animetrics/anilist-crawler/internal/testutil"
)

// newTestClient builds a client against the mock server with rate limiting
// disabled and a fast retry schedule.
func newTestClient(t *testing.T, mock *testutil.MockAniList, retry RetryConfig) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Endpoint = mock.URL()
	cfg.MinRequestInterval = 0
	cfg.Retry = retry

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, Interval: 5 * time.Millisecond}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty endpoint", func(c *Config) { c.Endpoint = "" }},
		{"zero max attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"zero per page", func(c *Config) { c.PerPage = 0 }},
		{"zero pages per query", func(c *Config) { c.PagesPerQuery = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if _, err := New(cfg); err == nil {
				t.Error("New() should reject invalid config")
			}
		})
	}
}

func TestFetchCompletedLists(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(testutil.NewOKResponse(testutil.CompletedListsBody(
		testutil.UserList{Entries: []testutil.ListEntry{
			{MediaID: 1535, Title: "Death Note", Score: 85},
			{MediaID: 20, Title: "Naruto", Score: 0},
		}},
		testutil.UserList{Null: true},
	)))

	client := newTestClient(t, mock, fastRetry(3))
	lists, err := client.FetchCompletedLists(context.Background(), UserBatch{Names: []string{"alice", "bob"}})
	if err != nil {
		t.Fatalf("FetchCompletedLists() error = %v", err)
	}

	if len(lists["alice"]) != 2 {
		t.Errorf("alice entries = %d, want 2", len(lists["alice"]))
	}
	if _, ok := lists["bob"]; ok {
		t.Error("null alias user must be absent from the result")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}

	// The single request carries one typed variable per batch member.
	req := mock.Requests[0]
	if req.Variables["username1"] != "alice" || req.Variables["username2"] != "bob" {
		t.Errorf("request variables = %v", req.Variables)
	}
}

func TestFetchPlanningList(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(testutil.NewOKResponse(testutil.PlanningBody(map[int]string{
		5114: "Fullmetal Alchemist: Brotherhood",
	})))

	client := newTestClient(t, mock, fastRetry(3))
	planning, err := client.FetchPlanningList(context.Background(), UserRef{Name: "alice"})
	if err != nil {
		t.Fatalf("FetchPlanningList() error = %v", err)
	}
	if planning[5114] != "Fullmetal Alchemist: Brotherhood" {
		t.Errorf("planning = %v", planning)
	}
}

func TestExecute_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
	)

	client := newTestClient(t, mock, fastRetry(3))
	_, err := client.FetchCompletedLists(context.Background(), UserBatch{Names: []string{"alice"}})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("error = %v, want ErrRetryExhausted", err)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("request count = %d, want exactly MaxAttempts", mock.GetRequestCount())
	}
}

func TestExecute_RecoversAfterTransientFailures(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(
		testutil.NewServerErrorResponse(),
		testutil.NewRateLimitResponse(),
		testutil.NewOKResponse(testutil.CompletedListsBody(testutil.UserList{})),
	)

	interval := 20 * time.Millisecond
	client := newTestClient(t, mock, RetryConfig{MaxAttempts: 5, Interval: interval})

	start := time.Now()
	_, err := client.FetchCompletedLists(context.Background(), UserBatch{Names: []string{"alice"}})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("FetchCompletedLists() error = %v", err)
	}
	if mock.GetRequestCount() != 3 {
		t.Errorf("request count = %d, want 3", mock.GetRequestCount())
	}
	// Linear backoff: interval*1 after the first failure, interval*2 after
	// the second.
	if want := 3 * interval; elapsed < want {
		t.Errorf("elapsed = %v, want >= %v", elapsed, want)
	}
}

func TestExecute_PrivateUserIsTerminal(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(testutil.NewPrivateUserResponse())

	client := newTestClient(t, mock, fastRetry(10))
	_, err := client.FetchCompletedLists(context.Background(), UserBatch{Names: []string{"bob", "alice"}})

	if !IsPrivateUser(err) {
		t.Fatalf("error = %v, want private user classification", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, terminal errors must not be retried", mock.GetRequestCount())
	}

	// Attribution is batch-granular: every member is named, sorted.
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error should be an *APIError, got %T", err)
	}
	if len(apiErr.Users) != 2 || apiErr.Users[0] != "alice" || apiErr.Users[1] != "bob" {
		t.Errorf("Users = %v, want [alice bob]", apiErr.Users)
	}
}

func TestExecute_UserNotFoundIsTerminal(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(testutil.NewUserNotFoundResponse())

	client := newTestClient(t, mock, fastRetry(10))
	_, err := client.FetchCompletedLists(context.Background(), UserBatch{IDs: []int{42}})

	if !IsUserNotFound(err) {
		t.Fatalf("error = %v, want user not found classification", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}
}

func TestExecute_Generic404IsRetried(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(
		testutil.MockResponse{StatusCode: 404, Body: `{"errors": [{"message": "Not Found.", "status": 404}]}`},
		testutil.NewOKResponse(testutil.CompletedListsBody(testutil.UserList{})),
	)

	client := newTestClient(t, mock, fastRetry(3))
	_, err := client.FetchCompletedLists(context.Background(), UserBatch{Names: []string{"alice"}})
	if err != nil {
		t.Fatalf("FetchCompletedLists() error = %v", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("request count = %d, want 2", mock.GetRequestCount())
	}
}

func TestExecute_MalformedBodyIsRetried(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(
		testutil.NewOKResponse(`{"data": `),
		testutil.NewOKResponse(testutil.CompletedListsBody(testutil.UserList{})),
	)

	client := newTestClient(t, mock, fastRetry(3))
	_, err := client.FetchCompletedLists(context.Background(), UserBatch{Names: []string{"alice"}})
	if err != nil {
		t.Fatalf("FetchCompletedLists() error = %v", err)
	}
	if mock.GetRequestCount() != 2 {
		t.Errorf("request count = %d, want 2", mock.GetRequestCount())
	}
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	mock.Enqueue(testutil.NewServerErrorResponse())

	client := newTestClient(t, mock, RetryConfig{MaxAttempts: 5, Interval: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.FetchCompletedLists(ctx, UserBatch{Names: []string{"alice"}})
	if !errors.Is(err, ErrContextCancelled) {
		t.Fatalf("error = %v, want ErrContextCancelled", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}
}
