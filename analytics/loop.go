package analytics

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// RunEvery calls tick once per period until ctx is done. Ticks never overlap.
// A panicking tick is recovered and logged so one bad step cannot end the
// loop.
func RunEvery(ctx context.Context, name string, period time.Duration, logger *slog.Logger, tick func(ctx context.Context)) {
	if period <= 0 {
		period = time.Second
	}
	t := time.NewTicker(period)
	defer t.Stop()
	logger.Info("loop started", "loop", name, "period", period.String())

	for {
		select {
		case <-t.C:
			safeTick(ctx, name, logger, tick)
		case <-ctx.Done():
			logger.Info("loop stopped", "loop", name)
			return
		}
	}
}

func safeTick(ctx context.Context, name string, logger *slog.Logger, tick func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			tickPanicsTotal.WithLabelValues(name).Inc()
			logger.Error("tick panicked", "loop", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	tick(ctx)
}
