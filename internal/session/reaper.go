package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartReaper purges expired tokens from store every interval until ctx is
// cancelled. It does nothing when interval is not positive.
func StartReaper(
	ctx context.Context,
	store *Store,
	interval time.Duration,
	log *zap.Logger,
) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := store.Purge(); removed > 0 {
					log.Info("purged expired sessions", zap.Int("removed", removed))
				}
			}
		}
	}()
}
