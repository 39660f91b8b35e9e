package auth

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes expired sessions and reports how many it dropped.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// StartTTLWorker runs a background goroutine that periodically sweeps
// expired sessions so open pages learn about expiry without a request.
func StartTTLWorker(ctx context.Context, sweeper Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session TTL worker started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				sweepOnce(ctx, sweeper)
			case <-ctx.Done():
				slog.Info("Session TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(ctx context.Context, sweeper Sweeper) {
	n, err := sweeper.SweepExpired(ctx)
	if err != nil {
		slog.Error("Session TTL worker failed to sweep", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Session TTL worker expired sessions", "count", n)
	}
}
