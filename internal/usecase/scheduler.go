package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"FraudShield/internal/domain"
	"FraudShield/internal/logging"
	"FraudShield/internal/ports"
)

// StatusMonitor samples the coordinator status on a schedule, the way a
// control surface polls for stats, and logs when the picture changes.
type StatusMonitor struct {
	driver ports.Scheduler
	coord  *Coordinator
	logger *slog.Logger

	mu      sync.Mutex
	last    domain.Status
	samples int
}

// NewStatusMonitor returns a helper to start/stop recurring status sampling.
func NewStatusMonitor(driver ports.Scheduler, coord *Coordinator, logger *slog.Logger) *StatusMonitor {
	return &StatusMonitor{driver: driver, coord: coord, logger: logging.Component(logger, "status")}
}

// Start registers the sampler with the provided scheduler.
func (s *StatusMonitor) Start(ctx context.Context) error {
	if s.driver == nil || s.coord == nil {
		return nil
	}

	job := func(time.Time) {
		s.Sample(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *StatusMonitor) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// Sample takes one snapshot now.
func (s *StatusMonitor) Sample(ctx context.Context) domain.Status {
	st := s.coord.Status(ctx)

	s.mu.Lock()
	prev, first := s.last, s.samples == 0
	s.last = st
	s.samples++
	s.mu.Unlock()

	if first || changed(prev, st) {
		s.logger.Info("protection status",
			"enabled", st.ProtectionEnabled,
			"platform", st.ActivePlatform,
			"scanned", st.ScannedUnits,
			"alerts", st.ActiveAlerts,
			"in_flight", st.InFlight,
			"classifier", st.ClassifierConfigured,
		)
	}
	return st
}

// Last returns the latest snapshot; ok is false before the first sample.
func (s *StatusMonitor) Last() (domain.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.samples > 0
}

func changed(a, b domain.Status) bool {
	return a.ProtectionEnabled != b.ProtectionEnabled ||
		a.ActivePlatform != b.ActivePlatform ||
		a.ScannedUnits != b.ScannedUnits ||
		a.ActiveAlerts != b.ActiveAlerts ||
		a.ClassifierConfigured != b.ClassifierConfigured ||
		a.PageURL != b.PageURL
}
