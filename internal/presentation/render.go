package presentation

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"FraudShield/internal/dom"
	"FraudShield/internal/domain"
)

// Class names shared by every alert node.
const (
	MarkerClass   = "fraudshield-warning"
	ExpandedClass = "expanded"
)

// MarkerSelector matches every presentation node, including the class names
// used by older builds, so teardown never leaves stale banners behind.
const MarkerSelector = "." + MarkerClass +
	", .fraud-universal-warning, .fraud-discord-warning, .fraud-detector-banner" +
	", [" + dom.AlertAttr + "]"

// Action values carried by data-action on alert controls.
const (
	ActionToggle  = "toggle"
	ActionReport  = "report"
	ActionDismiss = "dismiss"
)

type tierLook struct {
	Title string
	Color string
	Icon  string
}

var looks = map[domain.RiskTier]tierLook{
	domain.RiskLow:    {Title: "LOW RISK DETECTED", Color: "#4caf50", Icon: "ℹ"},
	domain.RiskMedium: {Title: "POTENTIAL FRAUD", Color: "#ff9800", Icon: "⚠"},
	domain.RiskHigh:   {Title: "HIGH RISK ALERT", Color: "#f44336", Icon: "⛔"},
}

var sourceLabels = map[domain.SourceTier]string{
	domain.SourceRemote:    "AI analysis",
	domain.SourceHeuristic: "keyword screening (AI analysis unavailable)",
	domain.SourceDemo:      "demo mode sample, not a real analysis",
}

var alertTemplate = template.Must(template.New("alert").Parse(`<div class="{{.Class}}" role="alert" ` +
	`data-fraudshield-alert="{{.ID}}" data-unit-id="{{.UnitID}}" data-state="collapsed" style="{{.Style}}">` +
	`<div class="fraudshield-header" data-action="toggle">` +
	`<span class="fraudshield-icon">{{.Icon}}</span>` +
	`<strong class="fraudshield-title">{{.Title}}</strong>` +
	`<span class="fraudshield-confidence">{{.Confidence}}% confidence</span>` +
	`</div>` +
	`<div class="fraudshield-hint" data-action="toggle">Click to view details</div>` +
	`<div class="fraudshield-details" hidden>` +
	`<p class="fraudshield-explanation">{{.Explanation}}</p>` +
	`{{if .Indicators}}<ul class="fraudshield-indicators">{{range .Indicators}}<li>{{.}}</li>{{end}}</ul>{{end}}` +
	`<p class="fraudshield-recommendation">{{.Action}}</p>` +
	`<p class="fraudshield-source">Source: {{.Source}}</p>` +
	`</div>` +
	`<div class="fraudshield-actions">` +
	`<button type="button" class="fraudshield-report" data-action="report">REPORT FRAUD</button>` +
	`<button type="button" class="fraudshield-dismiss" data-action="dismiss">DISMISS</button>` +
	`</div>` +
	`</div>`))

type alertData struct {
	ID          string
	UnitID      string
	Class       string
	Style       template.CSS
	Icon        string
	Title       string
	Confidence  int
	Explanation string
	Indicators  []string
	Action      string
	Source      string
}

// render builds the detached root element for a. Only the tier drives the
// visual encoding; the source tier shows up in the details text.
func render(a *Alert) (*html.Node, error) {
	r := a.Result.Normalized()
	look := looks[r.RiskTier]

	style := strings.TrimSpace(a.Style)
	if style == "" {
		style = "generic"
	}

	data := alertData{
		ID:          a.ID,
		UnitID:      a.UnitID,
		Class:       fmt.Sprintf("%s fraudshield-%s risk-%s", MarkerClass, style, r.RiskTier),
		Style:       template.CSS(fmt.Sprintf("border-left: 4px solid %s;", look.Color)),
		Icon:        look.Icon,
		Title:       look.Title,
		Confidence:  int(math.Round(r.Confidence)),
		Explanation: r.Explanation,
		Indicators:  r.Indicators,
		Action:      r.RecommendedAction,
		Source:      sourceLabels[r.SourceTier],
	}

	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render alert: %w", err)
	}

	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(&buf, parent)
	if err != nil {
		return nil, fmt.Errorf("parse alert: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("render alert: empty fragment")
}
