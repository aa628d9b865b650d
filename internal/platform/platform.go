package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/net/html"

	"FraudShield/internal/domain"
)

// Adapter discovers content units on one kind of host page and knows where
// their alerts go. Adapters never decide whether a unit was already scanned.
type Adapter interface {
	Name() string
	// DetectActive is a cheap, side-effect free check of the current page.
	DetectActive() bool
	// MountAndObserve starts watching the page and reports new units through
	// onUnit. Re-rendered units may be reported more than once. An adapter can
	// be mounted again after Teardown.
	MountAndObserve(ctx context.Context, onUnit func(domain.ContentUnit)) error
	// EnumerateExisting returns the units present right now.
	EnumerateExisting() []domain.ContentUnit
	// InsertPresentation attaches node next to the unit's container. It returns
	// false, leaving the page untouched, when the container already carries an
	// alert or is gone.
	InsertPresentation(unit domain.ContentUnit, node *html.Node) bool
	// ManualRescan clears transient skip markers and re-emits every unit.
	ManualRescan()
	// Teardown stops observers and timers. It never blocks on running work.
	Teardown()
	// Flush reports units from queued mutations now instead of after the
	// debounce delay.
	Flush()
	// Style names the alert look for this platform.
	Style() string
	// MinimumTier is the lowest tier that gets an alert.
	MinimumTier() domain.RiskTier
	// SettleDelay is how long to wait after mounting before the first enumeration.
	SettleDelay() time.Duration
}

// Registry keeps adapters in activation priority order.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry; adapters are tried in the order given.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register appends an adapter with the lowest priority so far, replacing an
// adapter of the same name in place.
func (r *Registry) Register(adapter Adapter) {
	if adapter == nil {
		return
	}
	for i, existing := range r.adapters {
		if existing.Name() == adapter.Name() {
			r.adapters[i] = adapter
			return
		}
	}
	r.adapters = append(r.adapters, adapter)
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("adapter %s is not registered", name)
}

// Select returns the first adapter whose DetectActive holds.
func (r *Registry) Select() (Adapter, error) {
	for _, a := range r.adapters {
		if a.DetectActive() {
			return a, nil
		}
	}
	return nil, fmt.Errorf("no adapter is active for this page")
}

// Names lists the registered adapters in priority order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// StableID derives a unit id from content when the host gives none. The same
// platform and parts always give the same id.
func StableID(platformName string, parts ...string) string {
	h := xxhash.New()
	_, _ = h.WriteString(platformName)
	for _, p := range parts {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(strings.TrimSpace(p))
	}
	return fmt.Sprintf("%s-%016x", platformName, h.Sum64())
}
