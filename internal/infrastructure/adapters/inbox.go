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
	"FraudShield/internal/platform"
)

const (
	inboxContainerSelector = "[data-message-id]"
	inboxBodySelector      = ".ii.gt"
	inboxSubjectSelector   = ".hP"
	inboxSenderSelector    = ".gD"
)

// Inbox handles webmail conversation views: every [data-message-id] element
// is one message, and the alert goes at the top of the message body.
type Inbox struct {
	*watcher

	navMu   sync.Mutex
	lastURL string
}

var _ platform.Adapter = (*Inbox)(nil)

// NewInbox builds the webmail adapter for doc.
func NewInbox(doc *dom.Document, cfg config.PlatformConfig, logger *slog.Logger) *Inbox {
	return &Inbox{watcher: newWatcher(config.PlatformInbox, doc, cfg, logger, collectInbox)}
}

// DetectActive holds on configured webmail hosts and on any page with
// conversation containers.
func (a *Inbox) DetectActive() bool {
	if hostMatches(a.doc.Hostname(), a.cfg.Hosts) {
		return true
	}
	found := false
	a.doc.View(func(root *goquery.Selection) {
		found = root.Find(inboxContainerSelector).Length() > 0
	})
	return found
}

// MountAndObserve watches mutations and polls the page URL; a view switch
// re-enumerates once the new view had time to settle.
func (a *Inbox) MountAndObserve(ctx context.Context, onUnit func(domain.ContentUnit)) error {
	a.navMu.Lock()
	a.lastURL = a.doc.URL()
	a.navMu.Unlock()
	return a.mount(ctx, onUnit, a.pollURL)
}

func (a *Inbox) pollURL(time.Time) {
	current := a.doc.URL()

	a.navMu.Lock()
	changed := current != a.lastURL
	a.lastURL = current
	a.navMu.Unlock()

	if !changed {
		return
	}
	a.logger.Debug("navigation detected", "url", current)
	a.after(a.cfg.NavigationSettle, func() {
		a.emit(a.enumerate())
	})
}

func (a *Inbox) EnumerateExisting() []domain.ContentUnit {
	return a.enumerate()
}

func (a *Inbox) ManualRescan() {
	if !a.mounted() {
		return
	}
	a.emit(a.enumerate())
}

func (a *Inbox) Teardown() {
	a.teardown()
}

// InsertPresentation puts the alert first inside the message body.
func (a *Inbox) InsertPresentation(unit domain.ContentUnit, node *html.Node) bool {
	return a.insert(unit, node, func(container, node *html.Node) bool {
		if dom.Wrap(container).Find("[" + dom.AlertAttr + "]").Length() > 0 {
			return false
		}
		target := container
		if body := dom.Wrap(container).Find(inboxBodySelector).First(); body.Length() > 0 {
			target = body.Get(0)
		}
		target.InsertBefore(node, target.FirstChild)
		return true
	})
}

func collectInbox(roots []*html.Node, pageURL string) []domain.ContentUnit {
	containers := findAll(roots, inboxContainerSelector)
	if len(containers) == 0 {
		return nil
	}

	subject := ""
	if top := topOf(containers[0]); top != nil {
		subject = strings.TrimSpace(dom.Wrap(top).Find(inboxSubjectSelector).First().Text())
	}
	if subject == "" {
		subject = "No Subject"
	}

	units := make([]domain.ContentUnit, 0, len(containers))
	for _, c := range containers {
		sel := dom.Wrap(c)

		body := sel.Find(inboxBodySelector).First()
		text := ""
		if body.Length() > 0 {
			text = dom.VisibleText(body.Get(0))
		} else {
			text = dom.VisibleText(c)
		}
		if text == "" {
			continue
		}

		sender := ""
		if s := sel.Find(inboxSenderSelector).First(); s.Length() > 0 {
			if email, ok := s.Attr("email"); ok {
				sender = email
			} else {
				sender = strings.TrimSpace(s.Text())
			}
		}

		id, _ := dom.Attr(c, "data-message-id")
		id = strings.TrimSpace(id)
		if id == "" {
			id = platform.StableID(config.PlatformInbox, subject, sender, text)
		} else {
			id = config.PlatformInbox + "-" + id
		}

		units = append(units, domain.ContentUnit{
			ID:        id,
			Platform:  config.PlatformInbox,
			Text:      text,
			Sender:    sender,
			Context:   "Email subject: " + subject,
			URL:       pageURL,
			Container: c,
		})
	}
	return units
}

func topOf(n *html.Node) *html.Node {
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	return top
}
