package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"FraudShield/internal/dom"
	"FraudShield/internal/domain"
	"FraudShield/internal/ledger"
	"FraudShield/internal/logging"
	"FraudShield/internal/platform"
	"FraudShield/internal/ports"
	"FraudShield/internal/presentation"
)

// ErrProtectionDisabled is returned by operations that need protection on.
var ErrProtectionDisabled = errors.New("protection is disabled")

// CoordinatorDeps wires everything the coordinator drives.
type CoordinatorDeps struct {
	Document   *dom.Document
	Registry   *platform.Registry
	Ledger     *ledger.Ledger
	Classifier ports.Classifier
	Alerts     *presentation.Manager
	Settings   ports.SettingsStore
	Logger     *slog.Logger
}

// Coordinator owns the protection state, the active adapter and the scan
// ledger. Units flow adapter -> admit -> classify -> alert.
//
// Lock order is c.mu, then the presentation manager, then the document.
// Adapter calls that emit units run without c.mu held.
type Coordinator struct {
	doc        *dom.Document
	registry   *platform.Registry
	ledger     *ledger.Ledger
	classifier ports.Classifier
	alerts     *presentation.Manager
	settings   ports.SettingsStore
	logger     *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	started    bool
	enabled    bool
	active     platform.Adapter
	generation uint64
	settle     *time.Timer

	work tracker
}

// NewCoordinator validates deps and builds the coordinator. A nil ledger gets a fresh one.
func NewCoordinator(deps CoordinatorDeps) (*Coordinator, error) {
	if deps.Document == nil || deps.Registry == nil || deps.Classifier == nil || deps.Alerts == nil {
		return nil, fmt.Errorf("coordinator needs a document, registry, classifier and alert manager")
	}
	l := deps.Ledger
	if l == nil {
		l = ledger.New()
	}
	c := &Coordinator{
		doc:        deps.Document,
		registry:   deps.Registry,
		ledger:     l,
		classifier: deps.Classifier,
		alerts:     deps.Alerts,
		settings:   deps.Settings,
		logger:     logging.Component(deps.Logger, "coordinator"),
		ctx:        context.Background(),
	}
	c.work.cond = sync.NewCond(&c.work.mu)
	return c, nil
}

// Start loads the protection state and, when on, activates the adapter
// chosen by the registry. ctx bounds all classification work.
func (c *Coordinator) Start(ctx context.Context) error {
	enabled := true
	if c.settings != nil {
		v, err := c.settings.ProtectionEnabled(ctx)
		if err != nil {
			c.logger.Warn("cannot load protection state, assuming on", "err", err)
		} else {
			enabled = v
		}
	}

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.ctx = ctx
	c.enabled = enabled
	c.mu.Unlock()

	c.logger.Info("coordinator started", "protection", enabled, "url", c.doc.URL())
	if !enabled {
		return nil
	}
	return c.activate()
}

// Stop detaches the active adapter without touching the persisted state.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivateLocked()
	c.started = false
}

// SetProtection persists the new state and applies it. Turning protection off
// tears the adapter down and strips every alert; turning it on clears the
// ledger and activates again.
func (c *Coordinator) SetProtection(ctx context.Context, enabled bool) error {
	if c.settings != nil {
		if err := c.settings.SetProtectionEnabled(ctx, enabled); err != nil {
			return fmt.Errorf("persist protection state: %w", err)
		}
	}

	c.mu.Lock()
	if c.enabled == enabled {
		c.mu.Unlock()
		return nil
	}
	c.enabled = enabled

	if !enabled {
		c.deactivateLocked()
		removed := c.alerts.RemoveAll()
		c.mu.Unlock()
		c.logger.Info("protection disabled", "alerts_removed", removed)
		return nil
	}

	c.ledger.Clear()
	c.mu.Unlock()
	c.logger.Info("protection enabled")
	return c.activate()
}

// ManualRescan clears the ledger and asks the active adapter to re-emit its
// units. Existing alerts stay; dismissed units get a fresh alert.
func (c *Coordinator) ManualRescan() error {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return ErrProtectionDisabled
	}
	adapter := c.active
	c.mu.Unlock()

	if adapter == nil {
		return fmt.Errorf("no active adapter")
	}

	c.ledger.Clear()
	c.logger.Info("manual rescan", "adapter", adapter.Name())
	adapter.ManualRescan()
	return nil
}

// SetClassifierAPIKey stores a new key. The remote client reads it on every
// call, so it applies to the next classification.
func (c *Coordinator) SetClassifierAPIKey(ctx context.Context, key string) error {
	if c.settings == nil {
		return fmt.Errorf("no settings store configured")
	}
	if err := c.settings.SetClassifierAPIKey(ctx, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("store api key: %w", err)
	}
	c.logger.Info("classifier api key updated", "configured", strings.TrimSpace(key) != "")
	return nil
}

// Status reports the current state for the control surface.
func (c *Coordinator) Status(ctx context.Context) domain.Status {
	c.mu.Lock()
	st := domain.Status{ProtectionEnabled: c.enabled}
	if c.active != nil {
		st.ActivePlatform = c.active.Name()
	}
	c.mu.Unlock()

	st.ScannedUnits = c.ledger.Len()
	st.ActiveAlerts = c.alerts.Count()
	st.InFlight = c.work.count()
	st.PageURL = c.doc.URL()
	st.CheckedAt = time.Now()

	if c.settings != nil {
		key, err := c.settings.ClassifierAPIKey(ctx)
		if err != nil {
			c.logger.Warn("cannot read api key", "err", err)
		}
		st.ClassifierConfigured = strings.TrimSpace(key) != ""
	}
	return st
}

// Wait blocks until pending settle timers and classifications are done.
// Mutations still inside the active adapter's debounce window are flushed
// first, so they count as pending work.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	adapter := c.active
	c.mu.Unlock()
	if adapter != nil {
		adapter.Flush()
	}
	c.work.wait()
}

// Alerts exposes the presentation manager driven by this coordinator.
func (c *Coordinator) Alerts() *presentation.Manager {
	return c.alerts
}

func (c *Coordinator) activate() error {
	adapter, err := c.registry.Select()
	if err != nil {
		return fmt.Errorf("select adapter: %w", err)
	}

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return nil
	}
	c.deactivateLocked()
	c.generation++
	gen := c.generation
	c.active = adapter
	ctx := c.ctx

	if err := adapter.MountAndObserve(ctx, c.handleUnit); err != nil {
		c.active = nil
		c.mu.Unlock()
		return fmt.Errorf("mount %s: %w", adapter.Name(), err)
	}

	delay := adapter.SettleDelay()
	c.work.add()
	if delay > 0 {
		c.settle = time.AfterFunc(delay, func() {
			defer c.work.done()
			c.enumerate(gen, adapter)
		})
		c.mu.Unlock()
	} else {
		c.mu.Unlock()
		func() {
			defer c.work.done()
			c.enumerate(gen, adapter)
		}()
	}

	c.logger.Info("adapter activated", "adapter", adapter.Name(), "settle", delay)
	return nil
}

// deactivateLocked must be called with c.mu held.
func (c *Coordinator) deactivateLocked() {
	c.generation++
	if c.settle != nil {
		if c.settle.Stop() {
			c.work.done()
		}
		c.settle = nil
	}
	if c.active != nil {
		c.active.Teardown()
		c.logger.Debug("adapter torn down", "adapter", c.active.Name())
		c.active = nil
	}
}

func (c *Coordinator) enumerate(gen uint64, adapter platform.Adapter) {
	if !c.current(gen) {
		return
	}
	units := adapter.EnumerateExisting()
	c.logger.Debug("enumerated existing units", "adapter", adapter.Name(), "count", len(units))
	for _, u := range units {
		c.handleUnit(u)
	}
}

// handleUnit admits u and classifies it in the background. Admission happens
// before any asynchronous work, so a unit id is classified at most once per
// ledger lifetime.
func (c *Coordinator) handleUnit(u domain.ContentUnit) {
	c.mu.Lock()
	if !c.enabled || c.active == nil {
		c.mu.Unlock()
		return
	}
	gen := c.generation
	adapter := c.active
	ctx := c.ctx
	c.mu.Unlock()

	if !c.ledger.Admit(u.ID) {
		return
	}
	c.logger.Debug("unit admitted", "unit", u.ID, "platform", u.Platform, "chars", len(u.Text))

	c.work.add()
	go func() {
		defer c.work.done()
		result := c.classifier.Classify(ctx, u)
		c.deliver(gen, adapter, u, result)
	}()
}

func (c *Coordinator) deliver(gen uint64, adapter platform.Adapter, u domain.ContentUnit, result domain.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled || gen != c.generation {
		c.logger.Debug("discarding stale result", "unit", u.ID)
		return
	}
	if result.RiskTier < adapter.MinimumTier() {
		c.logger.Debug("below display threshold", "unit", u.ID, "tier", result.RiskTier.String())
		return
	}
	if _, exists := c.alerts.ForUnit(u.ID); exists {
		return
	}

	alert, err := c.alerts.Build(u, result, adapter.Style())
	if err != nil {
		c.logger.Error("cannot build alert", "unit", u.ID, "err", err)
		return
	}
	if !adapter.InsertPresentation(u, alert.Node()) {
		c.logger.Debug("alert not inserted", "unit", u.ID)
		return
	}
	c.alerts.Track(alert)
	c.logger.Info("alert shown", "unit", u.ID, "tier", result.RiskTier.String(), "source", string(result.SourceTier), "outcome", string(result.Outcome))
}

func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && gen == c.generation
}

// tracker counts pending asynchronous work.
type tracker struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func (t *tracker) add() {
	t.mu.Lock()
	t.n++
	t.mu.Unlock()
}

func (t *tracker) done() {
	t.mu.Lock()
	t.n--
	if t.n <= 0 {
		t.n = 0
		t.cond.Broadcast()
	}
	t.mu.Unlock()
}

func (t *tracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

func (t *tracker) wait() {
	t.mu.Lock()
	for t.n > 0 {
		t.cond.Wait()
	}
	t.mu.Unlock()
}
