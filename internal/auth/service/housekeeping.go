package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/stardiary/stardiary/internal/auth/store"
)

// DefaultTokenRetention is how long revoked or stale refresh token rows are
// kept before housekeeping deletes them.
const DefaultTokenRetention = 90 * 24 * time.Hour

// HousekeepingService periodically prunes the refresh token ledger and
// clears QR tokens that expired without ever being redeemed.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to 1 hour, a non-positive retention to 90 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = DefaultTokenRetention
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress cleanup ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run once on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each pruning step independently; one failing does not stop
// the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()

	if n, err := s.Store.RefreshTokens().PurgeRevoked(ctx, now.Add(-s.Retention)); err != nil {
		s.Logger.Error("failed to purge refresh tokens", "error", err)
	} else if n > 0 {
		s.Logger.Info("purged refresh tokens", "count", n)
	}

	if n, err := s.Store.ChildAccess().ClearExpiredQRTokens(ctx, now); err != nil {
		s.Logger.Error("failed to clear expired qr tokens", "error", err)
	} else if n > 0 {
		s.Logger.Info("cleared expired qr tokens", "count", n)
	}
}
