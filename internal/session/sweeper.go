package session

import (
	"context"
	"log/slog"
	"time"
)

// SweepCallback runs after each sweep pass, e.g. to purge aged persistence
// rows alongside in-memory sessions. May be nil.
type SweepCallback func(ctx context.Context)

// StartSweeper runs a background goroutine that periodically removes
// sessions with no activity inside the TTL window. Sweeping is advisory
// resource reclamation: the affected user's next event simply restarts the
// flow at the menu.
func StartSweeper(ctx context.Context, store *Store, interval, ttl time.Duration, afterSweep SweepCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if removed := store.SweepExpired(ttl); removed > 0 {
					slog.Info("Session sweeper removed expired sessions",
						"removed", removed,
						"active", store.Len())
				}
				if afterSweep != nil {
					afterSweep(ctx)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
