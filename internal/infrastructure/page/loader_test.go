package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixture = `<html><head><title>Inbox</title></head><body><p>hello</p></body></html>`

func TestLoadFromServer(t *testing.T) {
	t.Parallel()

	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(fixture))
	}))
	defer srv.Close()

	l := NewLoader(srv.Client())
	doc, err := l.Load(context.Background(), srv.URL+"/mail", "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if agent != "FraudShield/1.0" {
		t.Fatalf("unexpected user agent %q", agent)
	}
	if doc.URL() != srv.URL+"/mail" || doc.Title() != "Inbox" {
		t.Fatalf("unexpected document %s %q", doc.URL(), doc.Title())
	}

	doc, err = l.Load(context.Background(), srv.URL, "https://mail.google.com/mail/u/0/")
	if err != nil {
		t.Fatalf("load with override: %v", err)
	}
	if doc.Hostname() != "mail.google.com" {
		t.Fatalf("page url override ignored: %s", doc.URL())
	}
}

func TestLoadRejectsBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := NewLoader(srv.Client()).Load(context.Background(), srv.URL, ""); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "saved.html")
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := NewLoader(nil).Load(context.Background(), path, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasPrefix(doc.URL(), "file://") || !strings.HasSuffix(doc.URL(), "saved.html") {
		t.Fatalf("unexpected file url %s", doc.URL())
	}

	if _, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "missing.html"), ""); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := NewLoader(nil).Load(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for empty source")
	}
}
