package core

// reaper.go provides the background lifecycle sweep for both stores.
//
// The reaper's only job is reclaiming memory: Get already enforces expiry on
// every lookup, so the sweep cadence bounds memory growth, never visibility.
// It is long-running and context-aware for graceful shutdown, and it logs
// progress without failing the application if a sweep finds nothing.

import (
	"context"
	"log/slog"
	"time"
)

// StartReaper starts a background loop that periodically evicts expired
// entries from the dataset and result stores. It sweeps immediately on
// start, then every interval, and stops when the context is cancelled.
func (s *Service) StartReaper(ctx context.Context, interval time.Duration) {
	slog.Info("reaper started", "interval", interval)

	s.sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reaper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep performs one eviction pass over both stores. A single timestamp is
// used for both so one sweep sees one "now".
func (s *Service) sweep() {
	start := time.Now()

	datasets := s.datasets.EvictExpired(start)
	results := s.results.EvictExpired(start)

	if datasets+results > 0 {
		slog.Info("evicted expired entries",
			"datasets", datasets,
			"results", results,
			"datasets_remaining", s.datasets.Len(),
			"results_remaining", s.results.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	dstats, rstats := s.Stats()
	slog.Debug("sweep found nothing to evict",
		"datasets_live", s.datasets.Len(),
		"results_live", s.results.Len(),
		"dataset_hits", dstats.Hits,
		"dataset_misses", dstats.Misses,
		"result_hits", rstats.Hits,
		"result_misses", rstats.Misses,
	)
}
