package store

import (
	"context"
	"log/slog"
	"time"
)

// GC periodically deletes messages older than a maximum age.
type GC struct {
	store    *Store
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewGC creates a message garbage collector.
func NewGC(s *Store, interval, maxAge time.Duration, logger *slog.Logger) *GC {
	if logger == nil {
		logger = slog.Default()
	}
	return &GC{
		store:    s,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With("component", "gc"),
	}
}

// Run deletes stale messages every interval until ctx is cancelled.
func (g *GC) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep(ctx)
		}
	}
}

func (g *GC) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-g.maxAge)
	n, err := g.store.DeleteMessagesBefore(ctx, cutoff.UnixMilli())
	if err != nil {
		g.logger.Error("sweep failed", "error", err)
		return
	}
	if n > 0 {
		g.logger.Info("deleted stale messages", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
}
