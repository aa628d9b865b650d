package adapters

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"FraudShield/internal/config"
	"FraudShield/internal/dom"
	"FraudShield/internal/domain"
	"FraudShield/internal/infrastructure/scheduler"
	"FraudShield/internal/logging"
)

// collector extracts the units found in or under roots. It runs with the
// document lock held, so it must not call Document methods.
type collector func(roots []*html.Node, pageURL string) []domain.ContentUnit

// watcher holds the mount state shared by every adapter: the mutation
// subscription, the debounced mutation queue, the poll timer and the emit callback.
type watcher struct {
	name    string
	doc     *dom.Document
	cfg     config.PlatformConfig
	minTier domain.RiskTier
	logger  *slog.Logger
	collect collector

	mu       sync.Mutex
	onUnit   func(domain.ContentUnit)
	cancel   func()
	poller   *scheduler.IntervalScheduler
	mutation *scheduler.BatchDebouncer[*html.Node]
	timers   []*time.Timer
}

func newWatcher(name string, doc *dom.Document, cfg config.PlatformConfig, logger *slog.Logger, collect collector) *watcher {
	tier, ok := domain.ParseRiskTier(cfg.MinimumTier)
	if !ok {
		tier = domain.RiskMedium
	}
	return &watcher{
		name:    name,
		doc:     doc,
		cfg:     cfg,
		minTier: tier,
		logger:  logging.Component(logger, "adapter."+name),
		collect: collect,
	}
}

func (w *watcher) Name() string {
	return w.name
}

func (w *watcher) Style() string {
	return w.name
}

func (w *watcher) MinimumTier() domain.RiskTier {
	return w.minTier
}

func (w *watcher) SettleDelay() time.Duration {
	return w.cfg.SettleDelay
}

// mount subscribes to page mutations and starts poll, which may be nil.
func (w *watcher) mount(ctx context.Context, onUnit func(domain.ContentUnit), poll func(time.Time)) error {
	w.teardown()

	mutation := scheduler.NewBatchDebouncer(w.cfg.MutationDebounce, w.handleMutations)
	var poller *scheduler.IntervalScheduler
	if poll != nil {
		poller = scheduler.NewIntervalScheduler(w.cfg.PollInterval)
	}

	w.mu.Lock()
	w.onUnit = onUnit
	w.mutation = mutation
	w.poller = poller
	w.cancel = w.doc.Observe(func(added []*html.Node) {
		mutation.Add(added...)
	})
	w.mu.Unlock()

	if poller != nil {
		if err := poller.Start(ctx, poll); err != nil {
			return err
		}
	}
	w.logger.Debug("adapter mounted", "url", w.doc.URL())
	return nil
}

func (w *watcher) teardown() {
	w.mu.Lock()
	cancel, poller, mutation, timers := w.cancel, w.poller, w.mutation, w.timers
	w.onUnit = nil
	w.cancel = nil
	w.poller = nil
	w.mutation = nil
	w.timers = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if poller != nil {
		_ = poller.Stop(context.Background())
	}
	if mutation != nil {
		mutation.Cancel()
	}
	for _, t := range timers {
		t.Stop()
	}
}

// Flush hands debounced mutations to the callback right away.
func (w *watcher) Flush() {
	w.mu.Lock()
	mutation := w.mutation
	w.mu.Unlock()
	if mutation != nil {
		mutation.Flush()
	}
}

func (w *watcher) mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onUnit != nil
}

// after runs fn once d elapsed unless the adapter is torn down first.
func (w *watcher) after(d time.Duration, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.onUnit == nil {
		return
	}
	w.timers = append(w.timers, time.AfterFunc(d, fn))
}

func (w *watcher) handleMutations(added []*html.Node) {
	pageURL := w.doc.URL()

	var units []domain.ContentUnit
	w.doc.View(func(*goquery.Selection) {
		roots := make([]*html.Node, 0, len(added))
		for _, n := range added {
			if w.doc.Attached(n) && !dom.InsideAlert(n) {
				roots = append(roots, n)
			}
		}
		if len(roots) > 0 {
			units = w.safeCollect(roots, pageURL)
		}
	})
	w.emit(units)
}

// enumerate collects every unit currently in the document.
func (w *watcher) enumerate() []domain.ContentUnit {
	pageURL := w.doc.URL()

	var units []domain.ContentUnit
	w.doc.View(func(root *goquery.Selection) {
		units = w.safeCollect(root.Nodes, pageURL)
	})
	return units
}

func (w *watcher) safeCollect(roots []*html.Node, pageURL string) (units []domain.ContentUnit) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("unit extraction failed", "panic", r)
			units = nil
		}
	}()
	return w.collect(roots, pageURL)
}

// emit hands units to the mounted callback one by one. A failing unit is
// logged and skipped.
func (w *watcher) emit(units []domain.ContentUnit) {
	w.mu.Lock()
	onUnit := w.onUnit
	w.mu.Unlock()
	if onUnit == nil {
		return
	}

	for _, u := range units {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("unit handler failed", "unit", u.ID, "panic", r)
				}
			}()
			onUnit(u)
		}()
	}
}

// insert places node through place while holding the document lock. The
// container must still be attached.
func (w *watcher) insert(unit domain.ContentUnit, node *html.Node, place func(container, node *html.Node) bool) bool {
	if unit.Container == nil || node == nil {
		return false
	}

	inserted := false
	w.doc.Update(func(*goquery.Selection) {
		if !w.doc.Attached(unit.Container) {
			return
		}
		inserted = place(unit.Container, node)
	})
	return inserted
}

func hostMatches(hostname string, hosts []string) bool {
	hostname = strings.ToLower(hostname)
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if hostname == h || strings.HasSuffix(hostname, "."+h) {
			return true
		}
	}
	return false
}

// findAll returns the elements matching selector in or under roots, in
// document order, without duplicates.
func findAll(roots []*html.Node, selector string) []*html.Node {
	var out []*html.Node
	seen := map[*html.Node]struct{}{}
	for _, r := range roots {
		sel := dom.Wrap(r)
		matches := sel.Filter(selector).Nodes
		matches = append(matches, sel.Find(selector).Nodes...)
		for _, n := range matches {
			if _, ok := seen[n]; ok || dom.InsideAlert(n) {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

func closest(n *html.Node, tags ...string) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if cur.Data == t {
				return cur
			}
		}
	}
	return nil
}
