package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
)

// StartCleanupLoop deletes expired sessions on a fixed interval until the
// context is cancelled.
func StartCleanupLoop(ctx context.Context, repo Repository, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := repo.CleanupExpired(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Session cleanup failed", slog.Any("error", err))
					continue
				}
				if removed > 0 {
					if m := metrics.Get(); m != nil {
						m.ActiveSessions.Add(ctx, -removed)
					}
					logger.InfoContext(ctx, "Expired sessions removed", slog.Int64("count", removed))
				}
			}
		}
	}()
}
