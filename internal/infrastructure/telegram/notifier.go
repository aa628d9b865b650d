package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FraudShield/internal/domain"
	"FraudShield/internal/ports"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier forwards fraud reports to a Telegram chat via the bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.ReportSink = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// WithAPIBase points the notifier at another bot API host.
func (n *Notifier) WithAPIBase(base string) *Notifier {
	n.apiBase = strings.TrimRight(base, "/")
	return n
}

// Configured reports whether both token and chat are set.
func (n *Notifier) Configured() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// Report posts a Markdown summary of the report.
func (n *Notifier) Report(ctx context.Context, report domain.FraudReport) error {
	if !n.Configured() || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", FormatReport(report))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// FormatReport renders the chat message body.
func FormatReport(r domain.FraudReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Fraud reported* (%s risk, %.0f%% confidence)\n", strings.ToUpper(r.RiskTier.String()), r.Confidence)
	fmt.Fprintf(&b, "Platform: %s\n", escape(r.Platform))
	if r.URL != "" {
		fmt.Fprintf(&b, "Page: %s\n", escape(r.URL))
	}
	if len(r.Indicators) > 0 {
		b.WriteString("Indicators:\n")
		for _, ind := range r.Indicators {
			fmt.Fprintf(&b, "- %s\n", escape(ind))
		}
	}
	fmt.Fprintf(&b, "Source: %s\n", escape(string(r.SourceTier)))
	fmt.Fprintf(&b, "Report: `%s`", r.ID)
	return b.String()
}

var markdown = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escape(s string) string {
	return markdown.Replace(s)
}
