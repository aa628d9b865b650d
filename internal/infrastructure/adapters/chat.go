package adapters

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"FraudShield/internal/config"
	"FraudShield/internal/dom"
	"FraudShield/internal/domain"
	"FraudShield/internal/platform"
)

// checkedAttr marks chat messages already handed out since the last rescan.
const checkedAttr = "data-fraud-checked"

// chatSelectors are tried in order; the first one with matches wins.
var chatSelectors = []string{
	`[id^="message-content-"]`,
	`[class*="messageContent-"]`,
	`[class*="message-"][class*="groupStart-"]`,
	`[class*="message-"][class*="cozyMessage-"]`,
	`[data-list-item-id*="chat-messages"]`,
	`li[id*="chat-messages-"]`,
}

// Chat handles chat clients rendering a message stream. Messages are picked
// up by polling and by debounced mutation bursts; the alert goes after the
// message row.
type Chat struct {
	*watcher
}

var _ platform.Adapter = (*Chat)(nil)

// NewChat builds the chat adapter for doc.
func NewChat(doc *dom.Document, cfg config.PlatformConfig, logger *slog.Logger) *Chat {
	c := &Chat{}
	c.watcher = newWatcher(config.PlatformChat, doc, cfg, logger, c.extract)
	return c
}

func (c *Chat) DetectActive() bool {
	return hostMatches(c.doc.Hostname(), c.cfg.Hosts)
}

// MountAndObserve starts from a clean slate: skip markers left by an earlier
// mount are cleared.
func (c *Chat) MountAndObserve(ctx context.Context, onUnit func(domain.ContentUnit)) error {
	c.clearMarkers()
	return c.mount(ctx, onUnit, func(time.Time) {
		c.emit(c.claim())
	})
}

// EnumerateExisting lists every message currently shown, marked or not.
func (c *Chat) EnumerateExisting() []domain.ContentUnit {
	units := c.enumerate()
	c.mark(units)
	return units
}

func (c *Chat) ManualRescan() {
	if !c.mounted() {
		return
	}
	c.clearMarkers()
	c.emit(c.claim())
}

func (c *Chat) Teardown() {
	c.teardown()
}

// InsertPresentation puts the alert right after the closest li or article
// around the message, or after the message itself.
func (c *Chat) InsertPresentation(unit domain.ContentUnit, node *html.Node) bool {
	return c.insert(unit, node, func(container, node *html.Node) bool {
		anchor := closest(container, "li", "article")
		if anchor == nil {
			anchor = container
		}
		if anchor.Parent == nil {
			return false
		}
		if next := dom.NextElement(anchor); next != nil && dom.IsAlert(next) {
			return false
		}
		anchor.Parent.InsertBefore(node, anchor.NextSibling)
		return true
	})
}

// claim returns the unmarked messages and marks them.
func (c *Chat) claim() []domain.ContentUnit {
	all := c.enumerate()
	fresh := make([]domain.ContentUnit, 0, len(all))
	c.doc.View(func(*goquery.Selection) {
		for _, u := range all {
			if _, checked := dom.Attr(u.Container, checkedAttr); !checked {
				fresh = append(fresh, u)
			}
		}
	})
	c.mark(fresh)
	return fresh
}

func (c *Chat) mark(units []domain.ContentUnit) {
	if len(units) == 0 {
		return
	}
	c.doc.Update(func(*goquery.Selection) {
		for _, u := range units {
			dom.Wrap(u.Container).SetAttr(checkedAttr, "true")
		}
	})
}

func (c *Chat) clearMarkers() {
	c.doc.Update(func(root *goquery.Selection) {
		root.Find("[" + checkedAttr + "]").RemoveAttr(checkedAttr)
	})
}

func (c *Chat) extract(roots []*html.Node, pageURL string) []domain.ContentUnit {
	var messages []*html.Node
	for _, selector := range chatSelectors {
		if messages = findAll(roots, selector); len(messages) > 0 {
			break
		}
	}

	units := make([]domain.ContentUnit, 0, len(messages))
	for _, m := range messages {
		text := dom.VisibleText(m)
		if len([]rune(text)) < c.cfg.MinTextLength {
			continue
		}

		sender := ""
		if row := closest(m, "li", "article"); row != nil {
			sender = strings.TrimSpace(dom.Wrap(row).Find(`[class*="username"]`).First().Text())
		}

		units = append(units, domain.ContentUnit{
			ID:        chatMessageID(m, text),
			Platform:  config.PlatformChat,
			Text:      text,
			Sender:    sender,
			Context:   "Chat message",
			URL:       pageURL,
			Container: m,
		})
	}
	return units
}

func chatMessageID(n *html.Node, text string) string {
	if id, ok := dom.Attr(n, "id"); ok && strings.TrimSpace(id) != "" {
		return config.PlatformChat + "-" + strings.TrimSpace(id)
	}
	if id, ok := dom.Attr(n, "data-list-item-id"); ok && strings.TrimSpace(id) != "" {
		return config.PlatformChat + "-" + strings.TrimSpace(id)
	}
	if row := closest(n, "li"); row != nil {
		if id, ok := dom.Attr(row, "id"); ok && strings.TrimSpace(id) != "" {
			return config.PlatformChat + "-" + strings.TrimSpace(id)
		}
	}
	return platform.StableID(config.PlatformChat, text)
}
