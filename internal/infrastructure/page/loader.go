package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"FraudShield/internal/dom"
)

const maxPageBytes = 10 << 20

// Loader builds host documents from saved pages or live URLs.
type Loader struct {
	client    *http.Client
	userAgent string
}

// NewLoader wires an HTTP client; a nil client gets a 20s timeout.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Loader{client: client, userAgent: "FraudShield/1.0"}
}

// Load reads source (a file path or an http(s) URL) into a document.
// pageURL overrides the address the document reports; by default it is the
// fetched URL or the file:// URL of the saved page.
func (l *Loader) Load(ctx context.Context, source, pageURL string) (*dom.Document, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("page source is empty")
	}

	if isRemote(source) {
		return l.fetch(ctx, source, pageURL)
	}
	return l.open(source, pageURL)
}

func (l *Loader) fetch(ctx context.Context, source, pageURL string) (*dom.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	if pageURL == "" {
		pageURL = resp.Request.URL.String()
	}
	doc, err := dom.Parse(io.LimitReader(resp.Body, maxPageBytes), pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func (l *Loader) open(path, pageURL string) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	if pageURL == "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve page path: %w", err)
		}
		pageURL = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	}
	doc, err := dom.Parse(io.LimitReader(f, maxPageBytes), pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
