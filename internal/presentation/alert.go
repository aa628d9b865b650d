package presentation

import (
	"time"

	"golang.org/x/net/html"

	"FraudShield/internal/domain"
)

// State is the lifecycle position of one alert.
type State string

const (
	StateCollapsed State = "collapsed"
	StateExpanded  State = "expanded"
	// StateDismissed is terminal: the node is gone from the document.
	StateDismissed State = "dismissed"
)

// Alert is one presentation instance attached next to a content unit.
type Alert struct {
	ID        string
	UnitID    string
	Platform  string
	URL       string
	Style     string
	Result    domain.ClassificationResult
	CreatedAt time.Time

	state State
	node  *html.Node
}

// Node returns the root element of the alert.
func (a *Alert) Node() *html.Node {
	return a.node
}

// State returns the current lifecycle state.
func (a *Alert) State() State {
	return a.state
}

// View is the read-only snapshot of an alert exposed to the control API.
type View struct {
	ID         string            `json:"id"`
	UnitID     string            `json:"unitId"`
	Platform   string            `json:"platform"`
	State      State             `json:"state"`
	RiskTier   domain.RiskTier   `json:"riskTier"`
	Confidence float64           `json:"confidence"`
	SourceTier domain.SourceTier `json:"sourceTier"`
	Indicators []string          `json:"indicators"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func (a *Alert) view() View {
	return View{
		ID:         a.ID,
		UnitID:     a.UnitID,
		Platform:   a.Platform,
		State:      a.state,
		RiskTier:   a.Result.RiskTier,
		Confidence: a.Result.Confidence,
		SourceTier: a.Result.SourceTier,
		Indicators: a.Result.Indicators,
		CreatedAt:  a.CreatedAt,
	}
}
