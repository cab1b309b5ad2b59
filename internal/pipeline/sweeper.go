package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// CacheSweeper deletes expired cache entries. *Pipeline implements it.
type CacheSweeper interface {
	SweepCaches(ctx context.Context) (SweepResult, error)
}

// Sweeper runs CacheSweeper on a fixed interval.
type Sweeper struct {
	target   CacheSweeper
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. A nil clock uses the real clock.
func NewSweeper(target CacheSweeper, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Sweeper {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sweeper{target: target, interval: interval, clock: clock, logger: logger}
}

// Run sweeps once per interval until ctx is cancelled. A non-positive
// interval disables the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("cache sweeper disabled")
		return nil
	}
	s.logger.Info("cache sweeper started", "interval", s.interval)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cache sweeper stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	res, err := s.target.SweepCaches(ctx)
	if err != nil {
		s.logger.Error("cache sweep failed", "error", err)
	}
	if res.Profile > 0 || res.Weather > 0 {
		s.logger.Info("cache sweep removed expired entries", "profile", res.Profile, "weather", res.Weather)
	}
}
