package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"FraudShield/internal/dom"
	"FraudShield/internal/domain"
	"FraudShield/internal/logging"
	"FraudShield/internal/ports"
)

// ErrAlertNotFound is returned for unknown or already dismissed alerts.
var ErrAlertNotFound = errors.New("alert not found")

const reportTimeout = 15 * time.Second

// Manager owns every live alert of one document.
type Manager struct {
	doc    *dom.Document
	sink   ports.ReportSink
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	alerts map[string]*Alert

	reports sync.WaitGroup
}

// NewManager creates a manager for doc. A nil sink drops reports.
func NewManager(doc *dom.Document, sink ports.ReportSink, logger *slog.Logger) *Manager {
	return &Manager{
		doc:    doc,
		sink:   sink,
		logger: logging.Component(logger, "presentation"),
		now:    time.Now,
		alerts: map[string]*Alert{},
	}
}

// Build renders a collapsed alert for unit. The node is detached; the caller
// inserts it and then calls Track.
func (m *Manager) Build(unit domain.ContentUnit, result domain.ClassificationResult, style string) (*Alert, error) {
	a := &Alert{
		ID:        uuid.NewString(),
		UnitID:    unit.ID,
		Platform:  unit.Platform,
		URL:       unit.URL,
		Style:     style,
		Result:    result.Normalized(),
		CreatedAt: m.now(),
		state:     StateCollapsed,
	}
	node, err := render(a)
	if err != nil {
		return nil, err
	}
	a.node = node
	return a, nil
}

// Track registers an inserted alert.
func (m *Manager) Track(a *Alert) {
	m.mu.Lock()
	m.alerts[a.ID] = a
	m.mu.Unlock()
	m.logger.Debug("alert attached", "alert", a.ID, "unit", a.UnitID, "tier", a.Result.RiskTier.String())
}

// Click handles a click on the alert. Action controls run their action; any
// other target toggles the details.
func (m *Manager) Click(ctx context.Context, id, action string) (State, error) {
	switch action {
	case ActionDismiss:
		return StateDismissed, m.Dismiss(id)
	case ActionReport:
		if _, err := m.Report(ctx, id); err != nil {
			return "", err
		}
		return StateDismissed, nil
	default:
		return m.Toggle(id)
	}
}

// Toggle flips an alert between collapsed and expanded.
func (m *Manager) Toggle(id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return "", fmt.Errorf("toggle %s: %w", id, ErrAlertNotFound)
	}

	next := StateExpanded
	if a.state == StateExpanded {
		next = StateCollapsed
	}

	m.doc.Update(func(*goquery.Selection) {
		sel := dom.Wrap(a.node)
		details := sel.Find(".fraudshield-details")
		hint := sel.Find(".fraudshield-hint")
		if next == StateExpanded {
			sel.AddClass(ExpandedClass)
			details.RemoveAttr("hidden")
			hint.SetAttr("hidden", "")
		} else {
			sel.RemoveClass(ExpandedClass)
			details.SetAttr("hidden", "")
			hint.RemoveAttr("hidden")
		}
		sel.SetAttr("data-state", string(next))
	})

	a.state = next
	return next, nil
}

// Dismiss removes the alert node. It is terminal for the alert; the unit only
// gets a new one after the scan ledger is cleared.
func (m *Manager) Dismiss(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok {
		return fmt.Errorf("dismiss %s: %w", id, ErrAlertNotFound)
	}
	m.detach(a)
	m.logger.Debug("alert dismissed", "alert", id, "unit", a.UnitID)
	return nil
}

// Report hands a fraud report to the sink in the background and dismisses the alert.
func (m *Manager) Report(ctx context.Context, id string) (domain.FraudReport, error) {
	m.mu.Lock()
	a, ok := m.alerts[id]
	if !ok {
		m.mu.Unlock()
		return domain.FraudReport{}, fmt.Errorf("report %s: %w", id, ErrAlertNotFound)
	}

	report := domain.FraudReport{
		ID:         uuid.NewString(),
		AlertID:    a.ID,
		UnitID:     a.UnitID,
		Platform:   a.Platform,
		URL:        a.URL,
		RiskTier:   a.Result.RiskTier,
		SourceTier: a.Result.SourceTier,
		Confidence: a.Result.Confidence,
		Indicators: a.Result.Indicators,
		ReportedAt: m.now(),
	}
	m.detach(a)
	m.mu.Unlock()

	m.logger.Info("fraud reported", "report", report.ID, "unit", report.UnitID, "platform", report.Platform, "tier", report.RiskTier.String())
	if m.sink == nil {
		return report, nil
	}

	m.reports.Add(1)
	go func() {
		defer m.reports.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
		defer cancel()
		if err := m.sink.Report(sendCtx, report); err != nil {
			m.logger.Warn("report delivery failed", "report", report.ID, "err", err)
		}
	}()
	return report, nil
}

// WaitReports blocks until background report deliveries finish.
func (m *Manager) WaitReports() {
	m.reports.Wait()
}

// ForUnit returns the live alert for unitID, if any.
func (m *Manager) ForUnit(unitID string) (View, bool) {
	for _, v := range m.List() {
		if v.UnitID == unitID {
			return v, true
		}
	}
	return View{}, false
}

// Get returns one live alert.
func (m *Manager) Get(id string) (View, bool) {
	m.prune()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return View{}, false
	}
	return a.view(), true
}

// List returns the live alerts, oldest first. Alerts whose node the host
// removed are forgotten.
func (m *Manager) List() []View {
	m.prune()

	m.mu.Lock()
	out := make([]View, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, a.view())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of live alerts.
func (m *Manager) Count() int {
	m.prune()
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

// RemoveAll strips every presentation node from the document, including
// nodes this manager never tracked, and forgets all alerts.
func (m *Manager) RemoveAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := m.doc.Remove(MarkerSelector)
	for id, a := range m.alerts {
		a.state = StateDismissed
		delete(m.alerts, id)
	}
	if removed > 0 {
		m.logger.Debug("alerts removed", "count", removed)
	}
	return removed
}

func (m *Manager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.doc.View(func(*goquery.Selection) {
		for id, a := range m.alerts {
			if !m.doc.Attached(a.node) {
				a.state = StateDismissed
				delete(m.alerts, id)
			}
		}
	})
}

// detach must be called with m.mu held.
func (m *Manager) detach(a *Alert) {
	m.doc.Update(func(*goquery.Selection) {
		if a.node.Parent != nil {
			a.node.Parent.RemoveChild(a.node)
		}
	})
	a.state = StateDismissed
	delete(m.alerts, a.ID)
}
