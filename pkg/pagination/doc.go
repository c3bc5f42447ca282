// Package pagination provides a pull-based cursor over windowed page fetches.
//
// AniList exposes paginated lists through numbered Page sub-queries that can
// be aliased and batched into a single document. Fetching a window of W
// consecutive pages per round trip amortizes the one-request-per-second rate
// limit. This package implements the cursor that drives such windows: a
// finite, non-restartable pull iterator that consumers may abandon early.
//
// Example usage:
//
//	cursor := pagination.NewCursor[int](fetcher, 5)
//	for cursor.HasMore() {
//		ids, err := cursor.Next(ctx)
//		...
//	}
//
// The cursor:
//   - Requests pages [p, p+W) from its WindowFetcher
//   - Emits items strictly in page order
//   - Treats an absent page as end of data
//   - Advances to the next window only when the last returned page
//     reported another page after it
package pagination
