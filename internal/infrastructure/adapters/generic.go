package adapters

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"FraudShield/internal/config"
	"FraudShield/internal/dom"
	"FraudShield/internal/domain"
	"FraudShield/internal/platform"
)

const genericSelector = `p, .message, [role="message"], .post, .comment`

// Generic scans text blocks on any page. It is always active and registered last.
type Generic struct {
	*watcher
}

var _ platform.Adapter = (*Generic)(nil)

// NewGeneric builds the catch-all adapter for doc.
func NewGeneric(doc *dom.Document, cfg config.PlatformConfig, logger *slog.Logger) *Generic {
	g := &Generic{}
	g.watcher = newWatcher(config.PlatformGeneric, doc, cfg, logger, g.extract)
	return g
}

func (g *Generic) DetectActive() bool {
	return true
}

func (g *Generic) MountAndObserve(ctx context.Context, onUnit func(domain.ContentUnit)) error {
	return g.mount(ctx, onUnit, nil)
}

func (g *Generic) EnumerateExisting() []domain.ContentUnit {
	return g.enumerate()
}

func (g *Generic) ManualRescan() {
	if !g.mounted() {
		return
	}
	g.emit(g.enumerate())
}

func (g *Generic) Teardown() {
	g.teardown()
}

// InsertPresentation puts the alert immediately before the text block.
func (g *Generic) InsertPresentation(unit domain.ContentUnit, node *html.Node) bool {
	return g.insert(unit, node, func(container, node *html.Node) bool {
		if container.Parent == nil {
			return false
		}
		if prev := dom.PrevElement(container); prev != nil && dom.IsAlert(prev) {
			return false
		}
		container.Parent.InsertBefore(node, container)
		return true
	})
}

func (g *Generic) extract(roots []*html.Node, pageURL string) []domain.ContentUnit {
	blocks := findAll(roots, genericSelector)

	units := make([]domain.ContentUnit, 0, len(blocks))
	for _, b := range blocks {
		text := dom.VisibleText(b)
		if len([]rune(text)) <= g.cfg.MinTextLength {
			continue
		}

		var id string
		if attr, ok := dom.Attr(b, "id"); ok && strings.TrimSpace(attr) != "" {
			id = platform.StableID(config.PlatformGeneric, "id", attr)
		} else {
			id = platform.StableID(config.PlatformGeneric, text)
		}

		units = append(units, domain.ContentUnit{
			ID:        id,
			Platform:  config.PlatformGeneric,
			Text:      text,
			Context:   "Web page content",
			URL:       pageURL,
			Container: b,
		})
	}
	return units
}
