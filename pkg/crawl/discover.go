package crawl

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/animetrics/anilist-crawler/pkg/anilist"
	"github.com/animetrics/anilist-crawler/pkg/pagination"
)

var usersDiscoveredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "crawl_users_discovered_total",
		Help: "Total number of distinct users found during discovery",
	},
)

// SeedLister is the client surface discovery needs. *anilist.Client
// implements it.
type SeedLister interface {
	FetchCompletedLists(ctx context.Context, batch anilist.UserBatch) (map[string][]anilist.AnimeEntry, error)
	FetchPlanningList(ctx context.Context, ref anilist.UserRef) (anilist.PlanningMap, error)
	Completers(mediaID int) *pagination.Cursor[int]
}

// DiscoverConfig holds discovery configuration.
type DiscoverConfig struct {
	// PerItemCap is the maximum number of users collected per media item
	// (default: 100). The cap counts users as they stream in, duplicates
	// included, so the distinct total can come out lower.
	PerItemCap int
}

// DefaultDiscoverConfig returns the default discovery configuration.
func DefaultDiscoverConfig() DiscoverConfig {
	return DiscoverConfig{PerItemCap: 100}
}

// DiscoverUsers finds users who rated any anime on the seed user's completed
// or planning list. For each media item it drains the completers cursor up to
// the per-item cap, then returns the union as a sorted slice of distinct user
// ids. Errors on the seed user's own lists (including PrivateUser and
// UserNotFound) abort discovery.
func DiscoverUsers(ctx context.Context, client SeedLister, seed string, cfg DiscoverConfig) ([]int, error) {
	if cfg.PerItemCap <= 0 {
		cfg.PerItemCap = 100
	}
	logger := log.With().Str("component", "crawl-discover").Logger()

	lists, err := client.FetchCompletedLists(ctx, anilist.UserBatch{Names: []string{seed}})
	if err != nil {
		return nil, err
	}
	planning, err := client.FetchPlanningList(ctx, anilist.UserRef{Name: seed})
	if err != nil {
		return nil, err
	}

	titles := make(map[int]string)
	for _, entries := range lists {
		for _, e := range entries {
			titles[e.MediaID] = e.Title
		}
	}
	for mediaID, title := range planning {
		if _, ok := titles[mediaID]; !ok {
			titles[mediaID] = title
		}
	}

	mediaIDs := make([]int, 0, len(titles))
	for mediaID := range titles {
		mediaIDs = append(mediaIDs, mediaID)
	}
	sort.Ints(mediaIDs)

	logger.Info().
		Str("seed", seed).
		Int("items", len(mediaIDs)).
		Msg("Starting user discovery")

	found := make(map[int]struct{})
	var recent []time.Duration

	for i, mediaID := range mediaIDs {
		itemStart := time.Now()
		added := 0

		cursor := client.Completers(mediaID)
		for cursor.HasMore() && added < cfg.PerItemCap {
			userIDs, err := cursor.Next(ctx)
			if err != nil {
				return nil, err
			}
			for _, userID := range userIDs {
				if _, seen := found[userID]; !seen {
					found[userID] = struct{}{}
					usersDiscoveredTotal.Inc()
				}
				added++
				if added >= cfg.PerItemCap {
					break
				}
			}
		}

		// ETA from a rolling window of the last 10 item durations.
		recent = append(recent, time.Since(itemStart))
		if len(recent) > 10 {
			recent = recent[1:]
		}
		var sum time.Duration
		for _, d := range recent {
			sum += d
		}
		eta := sum / time.Duration(len(recent)) * time.Duration(len(mediaIDs)-i-1)

		logger.Info().
			Int("item", i+1).
			Int("of", len(mediaIDs)).
			Int("media_id", mediaID).
			Str("title", titles[mediaID]).
			Int("users_added", added).
			Int("users_total", len(found)).
			Dur("eta", eta).
			Msg("Discovery progress")
	}

	result := make([]int, 0, len(found))
	for userID := range found {
		result = append(result, userID)
	}
	sort.Ints(result)
	return result, nil
}
