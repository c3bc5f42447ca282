package pagination

import (
	"context"
)

// Page is one page of results returned by a WindowFetcher. HasNextPage
// carries the upstream's own pagination flag for that page.
type Page[T any] struct {
	Items       []T
	HasNextPage bool
}

// WindowFetcher fetches a window of consecutive pages [startPage,
// startPage+pages) in one round trip. It returns the pages that actually
// exist, in page order; a window that runs past the end of the data returns
// fewer pages than requested.
type WindowFetcher[T any] interface {
	FetchWindow(ctx context.Context, startPage, pages int) ([]Page[T], error)
}

// Cursor is a finite, non-restartable pull iterator over windowed pages.
// It is not safe for concurrent use; the crawl is single-threaded by design
// because concurrent requests would only contend on the same rate budget.
type Cursor[T any] struct {
	fetcher  WindowFetcher[T]
	window   int
	nextPage int
	done     bool
}

// NewCursor creates a cursor starting at page 1 with the given window size.
func NewCursor[T any](fetcher WindowFetcher[T], window int) *Cursor[T] {
	if window <= 0 {
		window = 1
	}
	return &Cursor[T]{
		fetcher:  fetcher,
		window:   window,
		nextPage: 1,
	}
}

// HasMore reports whether another window may yield items. Consumers may stop
// calling Next at any point without leaking resources.
func (c *Cursor[T]) HasMore() bool {
	return !c.done
}

// Next fetches the next window and returns its items in page order. Items of
// pages after one that reported no further data are not emitted. A fetch
// error terminates the cursor.
func (c *Cursor[T]) Next(ctx context.Context) ([]T, error) {
	if c.done {
		return nil, nil
	}

	pages, err := c.fetcher.FetchWindow(ctx, c.nextPage, c.window)
	if err != nil {
		c.done = true
		return nil, err
	}

	var items []T
	hasNext := false
	consumed := 0
	for _, page := range pages {
		items = append(items, page.Items...)
		consumed++
		hasNext = page.HasNextPage
		if !hasNext {
			break
		}
	}

	// Advance only when the last page actually returned reported more
	// data; a short window means the data ran out mid-window.
	if consumed < c.window || !hasNext {
		c.done = true
	} else {
		c.nextPage += c.window
	}

	return items, nil
}
