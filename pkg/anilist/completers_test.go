package anilist

import (
	"context"
	"testing"

	"github.com/animetrics/anilist-crawler/internal/testutil"
)

func drainCompleters(t *testing.T, client *Client, mediaID int) []int {
	t.Helper()

	cursor := client.Completers(mediaID)
	var ids []int
	for cursor.HasMore() {
		batch, err := cursor.Next(context.Background())
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		ids = append(ids, batch...)
	}
	return ids
}

func TestCompleters_WindowedPagination(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	// Two full windows of two pages; the last page of the second window
	// reports the end of the data.
	mock.Enqueue(
		testutil.NewOKResponse(testutil.CompletersBody(
			testutil.PageData{Page: 1, Entries: []testutil.CompleterEntry{{UserID: 10, Score: 70}, {UserID: 11, Score: 0}}, HasNextPage: true},
			testutil.PageData{Page: 2, Entries: []testutil.CompleterEntry{{UserID: 12, Score: 50}}, HasNextPage: true},
		)),
		testutil.NewOKResponse(testutil.CompletersBody(
			testutil.PageData{Page: 3, Entries: []testutil.CompleterEntry{{UserID: 13, Score: 90}}, HasNextPage: true},
			testutil.PageData{Page: 4, Entries: []testutil.CompleterEntry{{UserID: 14, Score: 60}}, HasNextPage: false},
		)),
	)

	client := newTestClient(t, mock, fastRetry(3))
	client.config.PagesPerQuery = 2

	ids := drainCompleters(t, client, 1535)

	// User 11 is watched-but-unrated and excluded.
	want := []int{10, 12, 13, 14}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}

	if mock.GetRequestCount() != 2 {
		t.Errorf("request count = %d, want 2 (no request past the last page)", mock.GetRequestCount())
	}

	// The second window must start where the first left off.
	if mock.Requests[1].Variables["page3"] == nil || mock.Requests[1].Variables["page4"] == nil {
		t.Errorf("second window variables = %v, want page3 and page4", mock.Requests[1].Variables)
	}
}

func TestCompleters_ShortWindowEndsCursor(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	// Window asks for two pages, only one exists.
	mock.Enqueue(testutil.NewOKResponse(testutil.CompletersBody(
		testutil.PageData{Page: 1, Entries: []testutil.CompleterEntry{{UserID: 10, Score: 70}}, HasNextPage: false},
	)))

	client := newTestClient(t, mock, fastRetry(3))
	client.config.PagesPerQuery = 2

	ids := drainCompleters(t, client, 1535)
	if len(ids) != 1 || ids[0] != 10 {
		t.Errorf("ids = %v, want [10]", ids)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}
}

func TestCompleters_PagesAfterLastAreDropped(t *testing.T) {
	mock := testutil.NewMockAniList()
	defer mock.Close()

	// Page 1 reports no further data; page 2 arrives anyway and must be
	// ignored.
	mock.Enqueue(testutil.NewOKResponse(testutil.CompletersBody(
		testutil.PageData{Page: 1, Entries: []testutil.CompleterEntry{{UserID: 10, Score: 70}}, HasNextPage: false},
		testutil.PageData{Page: 2, Entries: []testutil.CompleterEntry{{UserID: 99, Score: 80}}, HasNextPage: true},
	)))

	client := newTestClient(t, mock, fastRetry(3))
	client.config.PagesPerQuery = 2

	ids := drainCompleters(t, client, 1535)
	if len(ids) != 1 || ids[0] != 10 {
		t.Errorf("ids = %v, want [10]", ids)
	}
}
