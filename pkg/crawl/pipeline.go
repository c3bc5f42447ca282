package crawl

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/animetrics/anilist-crawler/pkg/anilist"
)

var (
	batchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_batches_total",
			Help: "Total number of processed batches by result",
		},
		[]string{"result"},
	)

	checkpointsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crawl_checkpoints_total",
			Help: "Total number of checkpoints written",
		},
	)
)

// ListFetcher is the client surface the pipeline needs. *anilist.Client
// implements it.
type ListFetcher interface {
	FetchCompletedLists(ctx context.Context, batch anilist.UserBatch) (map[string][]anilist.AnimeEntry, error)
}

// PipelineConfig holds pipeline configuration.
type PipelineConfig struct {
	// BatchSize is the number of users fetched per request (default: 10).
	BatchSize int

	// CheckpointEvery is the checkpoint cadence in batches (default: 20).
	CheckpointEvery int

	// CheckpointPath is where checkpoints are written. Empty disables
	// checkpointing.
	CheckpointPath string
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:       10,
		CheckpointEvery: 20,
	}
}

// Pipeline crawls completed lists for a set of users, batch by batch, folding
// every entry into a ratings table. Batches are processed strictly in input
// order; the run is synchronous and single-threaded, paced by the client's
// rate limiter.
type Pipeline struct {
	fetcher ListFetcher
	config  PipelineConfig
	logger  zerolog.Logger

	ratings   RatingsTable
	baseBatch int
}

// NewPipeline creates a pipeline with an empty ratings table.
func NewPipeline(fetcher ListFetcher, cfg PipelineConfig) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 20
	}
	return &Pipeline{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "crawl-pipeline").Logger(),
		ratings: make(RatingsTable),
	}
}

// ResumePipeline creates a pipeline preloaded from a checkpoint. The returned
// user slice is what remains to be crawled; pass it to Run.
func ResumePipeline(fetcher ListFetcher, cfg PipelineConfig, cp Checkpoint) (*Pipeline, []int) {
	p := NewPipeline(fetcher, cfg)
	if cp.Ratings != nil {
		p.ratings = cp.Ratings
	}
	p.baseBatch = cp.LastBatch + 1

	p.logger.Info().
		Int("last_batch", cp.LastBatch).
		Int("remaining_users", len(cp.RemainingUsers)).
		Msg("Resuming from checkpoint")

	return p, cp.RemainingUsers
}

// Run crawls the given users and returns the accumulated ratings table. On a
// fatal fetch error the table accumulated so far is returned alongside the
// error; the last written checkpoint stays intact on disk. A batch-level
// PrivateUser or UserNotFound error skips the whole batch and continues.
func (p *Pipeline) Run(ctx context.Context, userIDs []int) (RatingsTable, error) {
	size := p.config.BatchSize
	total := (len(userIDs) + size - 1) / size

	for n := 0; n < total; n++ {
		start := n * size
		end := start + size
		if end > len(userIDs) {
			end = len(userIDs)
		}
		ids := userIDs[start:end]

		p.logger.Info().
			Int("batch", p.baseBatch+n+1).
			Int("of", p.baseBatch+total).
			Ints("users", ids).
			Msg("Processing batch")

		batch := anilist.UserBatch{IDs: ids}
		lists, err := p.fetcher.FetchCompletedLists(ctx, batch)
		switch {
		case err == nil:
			p.fold(batch.Labels(), lists)
			batchesTotal.WithLabelValues("ok").Inc()
		case anilist.IsPrivateUser(err) || anilist.IsUserNotFound(err):
			p.logger.Warn().
				Err(err).
				Ints("users", ids).
				Msg("Skipping batch")
			batchesTotal.WithLabelValues("skipped").Inc()
		default:
			p.logger.Error().
				Err(err).
				Int("batch", p.baseBatch+n+1).
				Msg("Aborting run")
			batchesTotal.WithLabelValues("error").Inc()
			return p.ratings, err
		}

		if p.config.CheckpointPath != "" && ((n+1)%p.config.CheckpointEvery == 0 || n == total-1) {
			cp := Checkpoint{
				Ratings:        p.ratings,
				RemainingUsers: userIDs[end:],
				LastBatch:      p.baseBatch + n,
			}
			if err := SaveCheckpoint(p.config.CheckpointPath, cp); err != nil {
				p.logger.Error().Err(err).Msg("Checkpoint write failed")
				return p.ratings, err
			}
			checkpointsTotal.Inc()
			p.logger.Info().
				Int("batch", p.baseBatch+n+1).
				Int("remaining_users", len(userIDs)-end).
				Msg("Checkpoint written")
		}

		if err := ctx.Err(); err != nil {
			return p.ratings, err
		}
	}

	return p.ratings, nil
}

// Ratings returns the table accumulated so far.
func (p *Pipeline) Ratings() RatingsTable {
	return p.ratings
}

// fold appends every entry of every fetched list to the ratings table. Score
// 0 entries are kept; filtering unrated entries is the consumer's concern.
// Users are folded in batch order so the table is deterministic for a given
// input.
func (p *Pipeline) fold(labels []string, lists map[string][]anilist.AnimeEntry) {
	for _, label := range labels {
		entries, ok := lists[label]
		if !ok {
			continue
		}
		for _, e := range entries {
			key := strconv.Itoa(e.MediaID)
			p.ratings[key] = append(p.ratings[key], UserScore{label: e.Score})
		}
	}
}
