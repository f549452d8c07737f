package idempotency

import (
	"context"
	"time"
)

const sweepBatch = 500

// Sweep removes expired records every interval until ctx is done.
func Sweep(ctx context.Context, store Store, interval time.Duration, clock func() time.Time, logger Logger) {
	if store == nil || interval <= 0 {
		return
	}
	if clock == nil {
		clock = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				removed, err := store.CleanupExpired(ctx, clock(), sweepBatch)
				if err != nil {
					if logger != nil {
						logger.Printf("idempotency: cleanup: %v", err)
					}
					break
				}
				if removed < sweepBatch {
					break
				}
			}
		}
	}
}
