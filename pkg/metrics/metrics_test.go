package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/animetrics/anilist-crawler/pkg/anilist"
	_ "github.com/animetrics/anilist-crawler/pkg/crawl"
	_ "github.com/animetrics/anilist-crawler/pkg/ratelimit"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Fatal("Registry should not be nil")
	}
	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestMetricInventoryRegistered(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	registered := make(map[string]bool, len(families))
	for _, family := range families {
		registered[family.GetName()] = true
	}

	// Label vectors (anilist_requests_total, anilist_errors_total,
	// crawl_batches_total) only surface after their first observation, so
	// the inventory check covers the plain collectors.
	for _, name := range []string{
		"anilist_request_duration_seconds",
		"anilist_retries_total",
		"anilist_retry_exhausted_total",
		"anilist_rate_limit_wait_seconds",
		"anilist_rate_limit_acquires_total",
		"crawl_checkpoints_total",
		"crawl_users_discovered_total",
	} {
		if !registered[name] {
			t.Errorf("metric %s is not registered", name)
		}
	}
}
