package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Observer receives the element nodes added by a host-side mutation.
type Observer func(added []*html.Node)

// Document is the host page: a parsed HTML tree plus the URL it is shown under.
// All tree access goes through View/Update or the mutation helpers, which
// serialize on a single lock. Observers run after the lock is released.
type Document struct {
	mu      sync.Mutex
	doc     *goquery.Document
	pageURL *url.URL

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// Parse reads an HTML page shown under pageURL.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %s: %w", pageURL, err)
	}

	return &Document{
		doc:       doc,
		pageURL:   parsed,
		observers: map[int]Observer{},
	}, nil
}

// ParseString is Parse over an in-memory page.
func ParseString(page, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(page), pageURL)
}

// URL returns the current page URL.
func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pageURL.String()
}

// Hostname returns the lower-cased host of the current page URL.
func (d *Document) Hostname() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.ToLower(d.pageURL.Hostname())
}

// Navigate changes the page URL without touching the tree, the way a
// single-page app switches views.
func (d *Document) Navigate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid page url %s: %w", rawURL, err)
	}
	d.mu.Lock()
	d.pageURL = parsed
	d.mu.Unlock()
	return nil
}

// View runs fn with read access to the tree.
func (d *Document) View(fn func(root *goquery.Selection)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc.Selection)
}

// Update runs fn with write access to the tree. Observers are not notified.
func (d *Document) Update(fn func(root *goquery.Selection)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.doc.Selection)
}

// Title returns the text of the <title> element.
func (d *Document) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// AppendHTML parses fragment and appends it to the first element matching
// parentSelector. Observers are notified with the added element nodes.
func (d *Document) AppendHTML(parentSelector, fragment string) ([]*html.Node, error) {
	d.mu.Lock()
	parent := d.doc.Find(parentSelector).First()
	if parent.Length() == 0 {
		d.mu.Unlock()
		return nil, fmt.Errorf("no element matches %q", parentSelector)
	}

	target := parent.Get(0)
	nodes, err := html.ParseFragment(strings.NewReader(fragment), target)
	if err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("parse fragment: %w", err)
	}

	added := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		target.AppendChild(n)
		if n.Type == html.ElementNode {
			added = append(added, n)
		}
	}
	d.mu.Unlock()

	d.notify(added)
	return added, nil
}

// Remove detaches every element matching selector and returns how many were removed.
func (d *Document) Remove(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.doc.Find(selector)
	count := sel.Length()
	sel.Remove()
	return count
}

// Observe subscribes fn to subtree additions. The returned func unsubscribes.
func (d *Document) Observe(fn Observer) func() {
	d.obsMu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.obsMu.Lock()
			delete(d.observers, id)
			d.obsMu.Unlock()
		})
	}
}

// Observers reports the number of active subscriptions.
func (d *Document) Observers() int {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	return len(d.observers)
}

func (d *Document) notify(added []*html.Node) {
	if len(added) == 0 {
		return
	}

	d.obsMu.Lock()
	subscribers := make([]Observer, 0, len(d.observers))
	for _, fn := range d.observers {
		subscribers = append(subscribers, fn)
	}
	d.obsMu.Unlock()

	for _, fn := range subscribers {
		fn(added)
	}
}

// Render serializes the whole tree.
func (d *Document) Render() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf bytes.Buffer
	for _, n := range d.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render document: %w", err)
		}
	}
	return buf.String(), nil
}

// Attached reports whether n is still part of the tree. Callers must hold the
// lock, i.e. call it from inside View or Update.
func (d *Document) Attached(n *html.Node) bool {
	if n == nil || len(d.doc.Nodes) == 0 {
		return false
	}
	root := d.doc.Nodes[0]
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// Wrap returns a selection over a single node.
func Wrap(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

// AlertAttr marks presentation nodes; text under such nodes is never part of
// a content unit.
const AlertAttr = "data-fraudshield-alert"

// VisibleText collects the text under n, skipping scripts, styles and alert nodes,
// with whitespace collapsed.
func VisibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if cur.DataAtom == atom.Script || cur.DataAtom == atom.Style {
				return
			}
			if _, ok := Attr(cur, AlertAttr); ok {
				return
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Attr returns the value of attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// IsAlert reports whether n is a presentation node.
func IsAlert(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	_, ok := Attr(n, AlertAttr)
	return ok
}

// InsideAlert reports whether n or one of its ancestors is a presentation node.
func InsideAlert(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if IsAlert(cur) {
			return true
		}
	}
	return false
}

// NextElement returns the next element sibling of n.
func NextElement(n *html.Node) *html.Node {
	for cur := n.NextSibling; cur != nil; cur = cur.NextSibling {
		if cur.Type == html.ElementNode {
			return cur
		}
	}
	return nil
}

// PrevElement returns the previous element sibling of n.
func PrevElement(n *html.Node) *html.Node {
	for cur := n.PrevSibling; cur != nil; cur = cur.PrevSibling {
		if cur.Type == html.ElementNode {
			return cur
		}
	}
	return nil
}
