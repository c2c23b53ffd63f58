package transaction

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires stale pending transactions with a coarse
// set-based update. It is eventually consistent with concurrent confirms:
// whichever side reaches a row first wins, and the loser observes the
// terminal status through the ordinary locking path.
type Sweeper struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper builds a sweeper driving the transaction service on the given
// interval.
func NewSweeper(service *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run blocks until the context is canceled, sweeping on every tick. Callers
// start it as a goroutine from process wiring.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			count, err := s.service.SweepExpired(ctx)
			if err != nil {
				s.logger.Error("sweep expired transactions", "error", err)
				continue
			}
			if count > 0 {
				s.logger.Info("expired stale transactions", "count", count)
			}
		}
	}
}
