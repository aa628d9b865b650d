package adapters

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"FraudShield/internal/config"
	"FraudShield/internal/dom"
	"FraudShield/internal/domain"
)

const inboxPage = `<html><body>
<h2 class="hP">Your account</h2>
<div data-message-id="m1"><span class="gD" email="security@bank-alerts.example">Bank</span>
<div class="ii gt"><div>URGENT: verify your account immediately or it will be suspended.</div></div></div>
<div data-message-id="m2"><span class="gD">Alice</span>
<div class="ii gt"><div>Lunch on Friday?</div></div></div>
</body></html>`

const chatPage = `<html><body><ol id="chat">
<li id="chat-messages-1"><span class="username-abc">mallory</span>
<div id="message-content-1">Congratulations, you have won a free gift card! Click here to claim your prize now.</div></li>
<li id="chat-messages-2"><span class="username-abc">bob</span><div id="message-content-2">ok</div></li>
</ol></body></html>`

const genericPage = `<html><body><div id="main">
<p id="p1">This is a long enough paragraph about gardening, tomatoes and the late summer harvest season.</p>
<p>short</p>
<div class="comment">Another comment that easily exceeds the fifty character minimum for scanning.</div>
</div></body></html>`

type collected struct {
	mu    sync.Mutex
	units []domain.ContentUnit
	ch    chan domain.ContentUnit
}

func newCollected() *collected {
	return &collected{ch: make(chan domain.ContentUnit, 64)}
}

func (c *collected) add(u domain.ContentUnit) {
	c.mu.Lock()
	c.units = append(c.units, u)
	c.mu.Unlock()
	c.ch <- u
}

func (c *collected) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.units))
	for _, u := range c.units {
		out = append(out, u.ID)
	}
	return out
}

func parse(t *testing.T, page, pageURL string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(page, pageURL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func alertNode(unitID string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: "fraudshield-warning"},
			{Key: dom.AlertAttr, Val: "a-" + unitID},
		},
	}
}

func TestInboxDetectAndEnumerate(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Platforms.Inbox
	doc := parse(t, inboxPage, "https://mail.google.com/mail/u/0/#inbox/abc")
	a := NewInbox(doc, cfg, nil)
	if !a.DetectActive() {
		t.Fatalf("inbox should be active on webmail host")
	}

	shaped := NewInbox(parse(t, inboxPage, "https://webmail.example.org/"), cfg, nil)
	if !shaped.DetectActive() {
		t.Fatalf("inbox should be active on conversation-shaped pages")
	}
	plain := NewInbox(parse(t, genericPage, "https://example.org/"), cfg, nil)
	if plain.DetectActive() {
		t.Fatalf("inbox must not claim plain pages")
	}

	units := a.EnumerateExisting()
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	u := units[0]
	if u.ID != "inbox-m1" || u.Sender != "security@bank-alerts.example" || u.Platform != config.PlatformInbox {
		t.Fatalf("unexpected unit %+v", u)
	}
	if !strings.HasPrefix(u.Text, "URGENT: verify") || u.Context != "Email subject: Your account" {
		t.Fatalf("unexpected text/context %q / %q", u.Text, u.Context)
	}
	if units[1].Sender != "Alice" {
		t.Fatalf("sender text fallback failed: %+v", units[1])
	}
	if a.Style() != "inbox" || a.MinimumTier() != domain.RiskLow {
		t.Fatalf("unexpected style/tier %s %v", a.Style(), a.MinimumTier())
	}
}

func TestInboxInsertPresentationIsIdempotent(t *testing.T) {
	t.Parallel()

	doc := parse(t, inboxPage, "https://mail.google.com/")
	a := NewInbox(doc, config.Default().Platforms.Inbox, nil)
	u := a.EnumerateExisting()[0]

	if !a.InsertPresentation(u, alertNode(u.ID)) {
		t.Fatalf("first insert should succeed")
	}
	if a.InsertPresentation(u, alertNode(u.ID)) {
		t.Fatalf("second insert must be a no-op")
	}

	out, _ := doc.Render()
	if strings.Count(out, dom.AlertAttr) != 1 {
		t.Fatalf("expected one alert node:\n%s", out)
	}
	if !strings.Contains(out, `<div class="ii gt"><div class="fraudshield-warning"`) {
		t.Fatalf("alert should be the first child of the body:\n%s", out)
	}

	again := a.EnumerateExisting()
	if again[0].ID != u.ID || again[0].Text != u.Text {
		t.Fatalf("alert must not change the unit: %+v", again[0])
	}
}

func TestInboxNavigationReenumerates(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Platforms.Inbox
	cfg.PollInterval = 5 * time.Millisecond
	cfg.NavigationSettle = time.Millisecond

	doc := parse(t, inboxPage, "https://mail.google.com/mail/u/0/#inbox")
	a := NewInbox(doc, cfg, nil)
	got := newCollected()
	if err := a.MountAndObserve(context.Background(), got.add); err != nil {
		t.Fatalf("mount: %v", err)
	}
	defer a.Teardown()

	if err := doc.Navigate("https://mail.google.com/mail/u/0/#inbox/xyz"); err != nil {
		t.Fatalf("navigate: %v", err)
	}

	select {
	case <-got.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("navigation did not trigger enumeration")
	}
}

func TestChatMutationsAndMarkers(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Platforms.Chat
	cfg.MutationDebounce = 0
	cfg.PollInterval = time.Hour

	doc := parse(t, chatPage, "https://discord.com/channels/1/2")
	c := NewChat(doc, cfg, nil)
	if !c.DetectActive() {
		t.Fatalf("chat should be active on discord")
	}

	got := newCollected()
	if err := c.MountAndObserve(context.Background(), got.add); err != nil {
		t.Fatalf("mount: %v", err)
	}

	units := c.EnumerateExisting()
	if len(units) != 1 || units[0].ID != "chat-message-content-1" || units[0].Sender != "mallory" {
		t.Fatalf("expected only the long message, got %+v", units)
	}

	_, err := doc.AppendHTML("#chat", `<li id="chat-messages-3"><span class="username-abc">eve</span>`+
		`<div id="message-content-3">Send bitcoin to this wallet within 24 hours or your account will be closed.</div></li>`)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ids := got.ids(); len(ids) != 1 || ids[0] != "chat-message-content-3" {
		t.Fatalf("expected mutation to emit the new message, got %v", ids)
	}

	c.ManualRescan()
	if ids := got.ids(); len(ids) != 3 {
		t.Fatalf("manual rescan should re-emit every message, got %v", ids)
	}

	c.Teardown()
	_, _ = doc.AppendHTML("#chat", `<li><div id="message-content-4">A brand new message that is certainly longer than fifty characters.</div></li>`)
	if ids := got.ids(); len(ids) != 3 {
		t.Fatalf("torn down adapter must not emit, got %v", ids)
	}
	if doc.Observers() != 0 {
		t.Fatalf("teardown should unsubscribe")
	}
}

func TestChatInsertAfterRow(t *testing.T) {
	t.Parallel()

	doc := parse(t, chatPage, "https://discord.com/")
	c := NewChat(doc, config.Default().Platforms.Chat, nil)
	u := c.EnumerateExisting()[0]

	if !c.InsertPresentation(u, alertNode(u.ID)) || c.InsertPresentation(u, alertNode(u.ID)) {
		t.Fatalf("insert should succeed once")
	}
	out, _ := doc.Render()
	if !strings.Contains(out, `</li><div class="fraudshield-warning"`) {
		t.Fatalf("alert should follow the row:\n%s", out)
	}
}

func TestGenericEnumerateAndInsert(t *testing.T) {
	t.Parallel()

	doc := parse(t, genericPage, "https://example.org/article")
	g := NewGeneric(doc, config.Default().Platforms.Generic, nil)
	if !g.DetectActive() {
		t.Fatalf("generic is always active")
	}

	units := g.EnumerateExisting()
	if len(units) != 2 {
		t.Fatalf("expected 2 long blocks, got %d", len(units))
	}
	if units[0].URL != "https://example.org/article" || units[0].Container == nil {
		t.Fatalf("unit missing url/container: %+v", units[0])
	}

	first := units[0].ID
	if !g.InsertPresentation(units[0], alertNode(first)) || g.InsertPresentation(units[0], alertNode(first)) {
		t.Fatalf("insert should succeed once")
	}
	out, _ := doc.Render()
	if !strings.Contains(out, `<div class="fraudshield-warning" `+dom.AlertAttr+`="a-`+first+`"></div><p id="p1">`) {
		t.Fatalf("alert should precede the block:\n%s", out)
	}

	if again := g.EnumerateExisting(); len(again) != 2 || again[0].ID != first {
		t.Fatalf("ids must be stable across rescans")
	}
}

func TestGenericIgnoresInsertionIntoDetachedContainer(t *testing.T) {
	t.Parallel()

	doc := parse(t, genericPage, "https://example.org/")
	g := NewGeneric(doc, config.Default().Platforms.Generic, nil)
	u := g.EnumerateExisting()[0]
	doc.Remove("#main")

	if g.InsertPresentation(u, alertNode(u.ID)) {
		t.Fatalf("insert into a removed container must fail")
	}
}

func TestGenericIdsFollowElementIdThenText(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("Same quoted paragraph that a page repeats in several places. ", 3)
	page := `<html><body><p>` + text + `</p><p>` + text + `</p><p id="x">` + text + `</p><p id="y">` + text + `</p></body></html>`
	doc := parse(t, page, "https://example.org/")
	g := NewGeneric(doc, config.Default().Platforms.Generic, nil)

	units := g.EnumerateExisting()
	if len(units) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(units))
	}
	if units[0].ID != units[1].ID {
		t.Fatalf("id-less blocks with identical text should share one id")
	}
	if units[2].ID == units[3].ID || units[2].ID == units[0].ID {
		t.Fatalf("element ids should distinguish identical text: %q %q %q", units[0].ID, units[2].ID, units[3].ID)
	}
}
