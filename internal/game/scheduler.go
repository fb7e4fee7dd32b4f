package game

import (
	"context"
	"errors"
	"time"
)

// RunScheduler ticks svc every period until ctx is cancelled. Paused and
// bankrupt sessions are skipped without logging each miss.
func RunScheduler(ctx context.Context, svc *Service, every time.Duration) {
	if every <= 0 {
		every = 3 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	svc.log.Info("scheduler started", "tick_every", every.String())
	for {
		select {
		case <-ctx.Done():
			svc.log.Info("scheduler shutdown")
			return
		case <-ticker.C:
			if _, err := svc.Tick(ctx); err != nil {
				if errors.Is(err, ErrPaused) || errors.Is(err, ErrGameOver) {
					continue
				}
				svc.log.Error("tick failed", "err", err)
			}
		}
	}
}
