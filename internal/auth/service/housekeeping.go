package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/plateful/auth/internal/auth/store"
)

// HousekeepingService periodically sweeps the revocation blacklist so it
// only holds entries for tokens that could still be presented.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the sweeper. A non-positive interval
// defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut
// it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup so restarts don't wait a full interval.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep deletes blacklist rows whose token has passed its natural expiry.
// An expired token fails verification on its own, so the row is dead weight.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()

	deleted, err := s.Store.RevokedTokens().DeleteExpiredRevokedTokens(ctx, time.Now().UTC())
	if err != nil {
		s.Logger.Error("failed to sweep revoked tokens", "error", err)
		return
	}

	s.Logger.Info("housekeeping sweep completed", "deleted", deleted)
}
