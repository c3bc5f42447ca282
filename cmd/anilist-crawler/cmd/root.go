// Package cmd implements the anilist-crawler CLI.
package cmd

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/animetrics/anilist-crawler/internal/config"
	"github.com/animetrics/anilist-crawler/pkg/anilist"
	"github.com/animetrics/anilist-crawler/pkg/logging"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.1.0-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile     string
	logLevel    string
	logPretty   bool
	endpoint    string
	metricsAddr string
)

// cfg is the loaded configuration, available to every subcommand after
// PersistentPreRunE.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "anilist-crawler",
	Short: "AniList ratings crawler",
	Long: `A crawler for the AniList GraphQL API that builds a user-item rating
matrix for recommendation experiments.

Commands:
  discover   Find users who rated the anime on a seed user's lists
  ratings    Crawl completed lists for a set of users, with checkpointing
  predict    Predict scores for a user's planning list from crawled data

All requests are paced to the upstream rate limit (one request per second)
and retried with linear backoff on transient failures.`,
	Version:           Version,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to configuration file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false,
		"Human-readable console log output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "",
		"Override GraphQL endpoint URL")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9090)")
}

// setup loads configuration, applies flag overrides, configures logging and
// optionally starts the metrics endpoint.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logPretty {
		cfg.Logging.Pretty = true
	}
	if endpoint != "" {
		cfg.Client.Endpoint = endpoint
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				log.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("Serving Prometheus metrics")
	}

	return nil
}

// newClient builds the AniList client from the loaded configuration.
func newClient() (*anilist.Client, error) {
	return anilist.New(anilist.Config{
		Endpoint:           cfg.Client.Endpoint,
		UserAgent:          cfg.Client.UserAgent,
		HTTPTimeout:        cfg.Client.Timeout,
		MinRequestInterval: cfg.Client.RequestInterval,
		PerPage:            cfg.Client.PerPage,
		PagesPerQuery:      cfg.Client.PagesPerQuery,
		Retry: anilist.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Interval:    cfg.Retry.Interval,
		},
	})
}
