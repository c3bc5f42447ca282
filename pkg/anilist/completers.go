package anilist

import (
	"context"

	"github.com/animetrics/anilist-crawler/pkg/pagination"
)

// completersFetcher executes windowed completers queries for one media id
// and maps each returned page to the user ids that rated the media. Entries
// with score 0 are watched-but-unrated and excluded.
type completersFetcher struct {
	client  *Client
	mediaID int
}

// FetchWindow implements pagination.WindowFetcher.
func (f *completersFetcher) FetchWindow(ctx context.Context, startPage, pages int) ([]pagination.Page[int], error) {
	doc := BuildCompletersQuery(f.mediaID, startPage, pages, f.client.config.PerPage)

	resp, err := f.client.Execute(ctx, doc)
	if err != nil {
		return nil, err
	}

	var out []pagination.Page[int]
	for p := startPage; p < startPage+pages; p++ {
		page, err := decodeCompletersPage(resp, p)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}

		var ids []int
		for _, entry := range page.MediaList {
			if entry.Score > 0 {
				ids = append(ids, entry.UserID)
			}
		}
		out = append(out, pagination.Page[int]{
			Items:       ids,
			HasNextPage: page.PageInfo.HasNextPage,
		})
	}
	return out, nil
}

// Completers returns a cursor over the ids of all users who completed and
// rated the given media, in upstream order. The cursor is finite and
// non-restartable; callers may stop early once they have enough users.
func (c *Client) Completers(mediaID int) *pagination.Cursor[int] {
	return pagination.NewCursor[int](&completersFetcher{
		client:  c,
		mediaID: mediaID,
	}, c.config.PagesPerQuery)
}
