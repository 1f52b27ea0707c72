package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ReservationSweeper periodically cancels pending orders whose
// payment never resolved, so abandoned checkouts cannot hold stock
// forever.
type ReservationSweeper struct {
	orders   OrderService
	interval time.Duration
	maxAge   time.Duration
	logger   zerolog.Logger
}

// NewReservationSweeper creates a sweeper that runs every interval
// and cancels pending orders older than maxAge.
func NewReservationSweeper(orders OrderService, interval, maxAge time.Duration, logger zerolog.Logger) *ReservationSweeper {
	return &ReservationSweeper{
		orders:   orders,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger.With().Str("component", "reservation-sweeper").Logger(),
	}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (s *ReservationSweeper) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("max_age", s.maxAge).
		Msg("reservation sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reservation sweeper stopped")
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.maxAge)
			if _, err := s.orders.SweepStaleReservations(ctx, cutoff); err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}
