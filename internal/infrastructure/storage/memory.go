package storage

import (
	"context"
	"sort"
	"sync"

	"FraudShield/internal/domain"
	"FraudShield/internal/ports"
)

// MemoryStore keeps settings and reports for the lifetime of the process.
type MemoryStore struct {
	mu        sync.Mutex
	protected *bool
	apiKey    string
	reports   []domain.FraudReport
}

var (
	_ ports.SettingsStore = (*MemoryStore)(nil)
	_ ports.ReportLog     = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) ProtectionEnabled(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.protected == nil {
		return true, nil
	}
	return *s.protected, nil
}

func (s *MemoryStore) SetProtectionEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protected = &enabled
	return nil
}

func (s *MemoryStore) ClassifierAPIKey(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiKey, nil
}

func (s *MemoryStore) SetClassifierAPIKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = key
	return nil
}

func (s *MemoryStore) Report(_ context.Context, report domain.FraudReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		if s.reports[i].ID == report.ID {
			s.reports[i] = report
			return nil
		}
	}
	s.reports = append(s.reports, report)
	return nil
}

// Reports returns the newest reports first. limit <= 0 returns all of them.
func (s *MemoryStore) Reports(_ context.Context, limit int) ([]domain.FraudReport, error) {
	s.mu.Lock()
	out := make([]domain.FraudReport, len(s.reports))
	copy(out, s.reports)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReportedAt.After(out[j].ReportedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
