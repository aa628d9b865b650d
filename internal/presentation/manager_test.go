package presentation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"FraudShield/internal/dom"
	"FraudShield/internal/domain"
)

type recordingSink struct {
	mu      sync.Mutex
	reports []domain.FraudReport
}

func (s *recordingSink) Report(_ context.Context, r domain.FraudReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

const hostPage = `<html><body><div id="feed"><p id="msg">Some message text</p></div>` +
	`<div class="fraud-discord-warning">old banner</div></body></html>`

func setup(t *testing.T, sink *recordingSink) (*dom.Document, *Manager) {
	t.Helper()
	doc, err := dom.ParseString(hostPage, "https://example.org/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var m *Manager
	if sink != nil {
		m = NewManager(doc, sink, nil)
	} else {
		m = NewManager(doc, nil, nil)
	}
	return doc, m
}

func attach(t *testing.T, doc *dom.Document, m *Manager, tier domain.RiskTier, source domain.SourceTier) *Alert {
	t.Helper()
	a, err := m.Build(
		domain.ContentUnit{ID: "unit-1", Platform: "generic", URL: "https://example.org/"},
		domain.ClassificationResult{
			RiskTier:          tier,
			Confidence:        87.6,
			Indicators:        []string{"Urgent language", "<b>markup</b>"},
			Explanation:       "Looks like phishing.",
			RecommendedAction: "Do not click.",
			SourceTier:        source,
		},
		"generic",
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc.Update(func(root *goquery.Selection) {
		root.Find("#feed").Get(0).AppendChild(a.Node())
	})
	m.Track(a)
	return a
}

func TestBuildRendersTierLook(t *testing.T) {
	t.Parallel()

	doc, m := setup(t, nil)
	a := attach(t, doc, m, domain.RiskHigh, domain.SourceHeuristic)

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"HIGH RISK ALERT",
		"#f44336",
		"88% confidence",
		"fraudshield-warning fraudshield-generic risk-high",
		`role="alert"`,
		`data-fraudshield-alert="` + a.ID + `"`,
		"Click to view details",
		"&lt;b&gt;markup&lt;/b&gt;",
		"keyword screening",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered alert missing %q:\n%s", want, out)
		}
	}
	if a.State() != StateCollapsed {
		t.Fatalf("new alert should be collapsed")
	}
}

func TestSourceTierDoesNotChangeLook(t *testing.T) {
	t.Parallel()

	_, m := setup(t, nil)
	unit := domain.ContentUnit{ID: "u"}
	remote, err := m.Build(unit, domain.ClassificationResult{RiskTier: domain.RiskMedium, SourceTier: domain.SourceRemote}, "chat")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	demo, err := m.Build(unit, domain.ClassificationResult{RiskTier: domain.RiskMedium, SourceTier: domain.SourceDemo}, "chat")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	r1, _ := dom.Wrap(remote.Node()).Attr("class")
	r2, _ := dom.Wrap(demo.Node()).Attr("class")
	s1, _ := dom.Wrap(remote.Node()).Attr("style")
	s2, _ := dom.Wrap(demo.Node()).Attr("style")
	if r1 != r2 || s1 != s2 {
		t.Fatalf("visual encoding must depend on tier only: %q/%q %q/%q", r1, r2, s1, s2)
	}
}

func TestToggleCycles(t *testing.T) {
	t.Parallel()

	doc, m := setup(t, nil)
	a := attach(t, doc, m, domain.RiskMedium, domain.SourceRemote)

	state, err := m.Click(context.Background(), a.ID, "")
	if err != nil || state != StateExpanded {
		t.Fatalf("expected expanded, got %s %v", state, err)
	}
	sel := dom.Wrap(a.Node())
	if !sel.HasClass(ExpandedClass) {
		t.Fatalf("expanded class missing")
	}
	if _, hidden := sel.Find(".fraudshield-details").Attr("hidden"); hidden {
		t.Fatalf("details should be visible when expanded")
	}
	if _, hidden := sel.Find(".fraudshield-hint").Attr("hidden"); !hidden {
		t.Fatalf("hint should hide when expanded")
	}

	state, err = m.Toggle(a.ID)
	if err != nil || state != StateCollapsed || sel.HasClass(ExpandedClass) {
		t.Fatalf("expected collapsed, got %s %v", state, err)
	}
}

func TestDismissIsTerminal(t *testing.T) {
	t.Parallel()

	doc, m := setup(t, nil)
	a := attach(t, doc, m, domain.RiskLow, domain.SourceRemote)

	if _, err := m.Click(context.Background(), a.ID, ActionDismiss); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if a.State() != StateDismissed || m.Count() != 0 {
		t.Fatalf("alert should be gone")
	}
	if _, err := m.Toggle(a.ID); !errors.Is(err, ErrAlertNotFound) {
		t.Fatalf("dismissed alert must not toggle, got %v", err)
	}
	out, _ := doc.Render()
	if strings.Contains(out, a.ID) {
		t.Fatalf("node still in document")
	}
}

func TestReportNotifiesSinkAndDismisses(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	doc, m := setup(t, sink)
	a := attach(t, doc, m, domain.RiskHigh, domain.SourceRemote)

	report, err := m.Report(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	m.WaitReports()

	if len(sink.reports) != 1 || sink.reports[0].ID != report.ID {
		t.Fatalf("sink did not receive report: %+v", sink.reports)
	}
	if sink.reports[0].UnitID != "unit-1" || sink.reports[0].RiskTier != domain.RiskHigh {
		t.Fatalf("unexpected report %+v", sink.reports[0])
	}
	if a.State() != StateDismissed {
		t.Fatalf("report must dismiss the alert")
	}
}

func TestRemoveAllIncludesLegacyMarkers(t *testing.T) {
	t.Parallel()

	doc, m := setup(t, nil)
	attach(t, doc, m, domain.RiskHigh, domain.SourceRemote)

	if removed := m.RemoveAll(); removed != 2 {
		t.Fatalf("expected 2 nodes removed, got %d", removed)
	}
	if m.Count() != 0 {
		t.Fatalf("registry not cleared")
	}
	out, _ := doc.Render()
	if strings.Contains(out, "old banner") || strings.Contains(out, "fraudshield-warning") {
		t.Fatalf("markers left behind:\n%s", out)
	}
}

func TestListForgetsAlertsRemovedByHost(t *testing.T) {
	t.Parallel()

	doc, m := setup(t, nil)
	a := attach(t, doc, m, domain.RiskHigh, domain.SourceRemote)

	if _, ok := m.ForUnit("unit-1"); !ok {
		t.Fatalf("alert should be found for unit")
	}
	doc.Remove("#feed")
	if len(m.List()) != 0 {
		t.Fatalf("detached alert should be pruned")
	}
	if _, ok := m.Get(a.ID); ok {
		t.Fatalf("detached alert still reachable")
	}
}
