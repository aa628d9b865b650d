package dom

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const page = `<html><head><title>Inbox</title></head><body>
<div id="list"><p id="first">hello <script>var x = 1;</script>world</p></div>
</body></html>`

func TestParseHostname(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(page, "https://Mail.Google.com/mail/u/0/#inbox")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Hostname() != "mail.google.com" {
		t.Fatalf("unexpected hostname %q", doc.Hostname())
	}
	if doc.Title() != "Inbox" {
		t.Fatalf("unexpected title %q", doc.Title())
	}

	if err := doc.Navigate("https://mail.google.com/mail/u/0/#inbox/abc"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if !strings.HasSuffix(doc.URL(), "#inbox/abc") {
		t.Fatalf("navigate did not change url: %s", doc.URL())
	}
}

func TestAppendHTMLNotifiesObservers(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(page, "https://example.org/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var got []*html.Node
	cancel := doc.Observe(func(added []*html.Node) {
		got = append(got, added...)
	})

	added, err := doc.AppendHTML("#list", `<p class="post">one</p>text<p class="post">two</p>`)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(added) != 2 || len(got) != 2 {
		t.Fatalf("expected 2 added element nodes, got %d/%d", len(added), len(got))
	}

	cancel()
	cancel()
	if doc.Observers() != 0 {
		t.Fatalf("expected observer to be removed")
	}

	if _, err := doc.AppendHTML("#list", `<p>three</p>`); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cancelled observer still notified")
	}

	if _, err := doc.AppendHTML("#missing", `<p>x</p>`); err == nil {
		t.Fatalf("expected error for missing parent")
	}
}

func TestVisibleTextSkipsScriptsAndAlerts(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(page, "https://example.org/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, err := doc.AppendHTML("#first", `<div data-fraudshield-alert="a1">HIGH RISK ALERT</div>`); err != nil {
		t.Fatalf("append: %v", err)
	}

	var text string
	doc.View(func(root *goquery.Selection) {
		text = VisibleText(root.Find("#first").Get(0))
	})
	if text != "hello world" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestRemoveAndAttached(t *testing.T) {
	t.Parallel()

	doc, err := ParseString(page, "https://example.org/")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var first *html.Node
	doc.View(func(root *goquery.Selection) {
		first = root.Find("#first").Get(0)
		if !doc.Attached(first) {
			t.Errorf("expected node to be attached")
		}
	})

	if n := doc.Remove("#first"); n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}

	doc.View(func(root *goquery.Selection) {
		if doc.Attached(first) {
			t.Errorf("expected node to be detached")
		}
	})

	out, err := doc.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "hello") {
		t.Fatalf("removed node still rendered")
	}
}
