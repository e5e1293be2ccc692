package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sysdesk/sysdesk/internal/auth/store"
)

// HousekeepingService periodically marks expired-but-still-active sessions
// inactive so the session table stays an honest revocation authority and
// reads never have to reason about stale active rows. The sweep is
// idempotent and safe to run from multiple instances at once.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep once immediately on startup.
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

func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.Store.Sessions().SweepExpiredSessions(ctx, time.Now())
	if err != nil {
		s.Logger.Error("session sweep failed", "error", err)
		return
	}
	if count > 0 {
		s.Logger.Info("swept expired sessions", "count", count)
	} else {
		s.Logger.Debug("session sweep found nothing to do")
	}
}
