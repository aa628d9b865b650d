package platform

import (
	"context"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"FraudShield/internal/domain"
)

type stubAdapter struct {
	name   string
	active bool
}

func (s stubAdapter) Name() string      { return s.name }
func (s stubAdapter) DetectActive() bool { return s.active }
func (s stubAdapter) MountAndObserve(context.Context, func(domain.ContentUnit)) error {
	return nil
}
func (s stubAdapter) EnumerateExisting() []domain.ContentUnit                { return nil }
func (s stubAdapter) InsertPresentation(domain.ContentUnit, *html.Node) bool { return false }
func (s stubAdapter) ManualRescan()                                          {}
func (s stubAdapter) Teardown()                                              {}
func (s stubAdapter) Flush()                                                 {}
func (s stubAdapter) Style() string                                          { return s.name }
func (s stubAdapter) MinimumTier() domain.RiskTier                           { return domain.RiskLow }
func (s stubAdapter) SettleDelay() time.Duration                             { return 0 }

func TestSelectPrefersPriorityOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(
		stubAdapter{name: "inbox", active: true},
		stubAdapter{name: "chat", active: true},
		stubAdapter{name: "generic", active: true},
	)

	a, err := reg.Select()
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if a.Name() != "inbox" {
		t.Fatalf("expected highest priority adapter, got %s", a.Name())
	}
}

func TestSelectSkipsInactive(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(stubAdapter{name: "inbox"}, stubAdapter{name: "chat", active: true})
	a, err := reg.Select()
	if err != nil || a.Name() != "chat" {
		t.Fatalf("expected chat, got %v %v", a, err)
	}

	if _, err := NewRegistry(stubAdapter{name: "inbox"}).Select(); err == nil {
		t.Fatalf("expected error when nothing is active")
	}
}

func TestRegisterReplacesInPlace(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(stubAdapter{name: "inbox"}, stubAdapter{name: "generic", active: true})
	reg.Register(stubAdapter{name: "inbox", active: true})

	if names := strings.Join(reg.Names(), ","); names != "inbox,generic" {
		t.Fatalf("unexpected order %s", names)
	}
	a, _ := reg.Select()
	if a.Name() != "inbox" {
		t.Fatalf("replacement should keep priority, got %s", a.Name())
	}
	if _, err := reg.Resolve("chat"); err == nil {
		t.Fatalf("expected resolve error")
	}
}

func TestStableID(t *testing.T) {
	t.Parallel()

	a := StableID("generic", "hello world")
	b := StableID("generic", "  hello world ")
	c := StableID("chat", "hello world")
	if a != b {
		t.Fatalf("ids should ignore surrounding whitespace: %s vs %s", a, b)
	}
	if a == c || !strings.HasPrefix(a, "generic-") {
		t.Fatalf("ids should be namespaced by platform: %s %s", a, c)
	}
	if StableID("x", "ab", "c") == StableID("x", "a", "bc") {
		t.Fatalf("part boundaries must matter")
	}
}
