package actions

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Pause blocks the calling goroutine for d on clock, or until ctx is done.
func Pause(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
