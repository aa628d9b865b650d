package heuristic

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"FraudShield/internal/domain"
)

const (
	mediumThreshold = 20
	highThreshold   = 60

	baseConfidence = 40
	maxConfidence  = 90
)

// Assessment is the outcome of running the rule set over a text.
type Assessment struct {
	Score      int
	RiskTier   domain.RiskTier
	Confidence float64
	// Indicators holds the names of the rules that fired, in rule order.
	Indicators []string
}

// Matched reports whether any rule fired.
func (a Assessment) Matched() bool {
	return len(a.Indicators) > 0
}

// Engine evaluates additive keyword rules. It is stateless and safe for
// concurrent use once built.
type Engine struct {
	rules []Rule
}

// New creates an engine with the given rules; with none it uses DefaultRules.
func New(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// AddRule appends a rule; rules are evaluated in the order they were added.
func (e *Engine) AddRule(r Rule) {
	e.rules = append(e.rules, r)
}

// Rules returns the configured rule set.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Assess scores text against every rule. An unmatched text scores Low.
func (e *Engine) Assess(text string) Assessment {
	a := Assessment{RiskTier: domain.RiskLow, Indicators: []string{}}
	text = strings.TrimSpace(text)
	if text == "" {
		a.Confidence = baseConfidence
		return a
	}

	for _, r := range e.rules {
		score, ok := r.Evaluate(text)
		if !ok {
			continue
		}
		a.Score += score
		a.Indicators = append(a.Indicators, r.Name())
	}

	switch {
	case a.Score >= highThreshold:
		a.RiskTier = domain.RiskHigh
	case a.Score >= mediumThreshold:
		a.RiskTier = domain.RiskMedium
	}

	confidence := float64(baseConfidence + a.Score/2)
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	a.Confidence = domain.ClampConfidence(confidence)
	return a
}

// Demo returns a deterministic placeholder assessment derived from the text
// hash. It carries no fraud signal and must only be shown when demo mode is on.
func Demo(text string) Assessment {
	h := xxhash.Sum64String(strings.TrimSpace(text))

	tier := domain.RiskLow
	switch bucket := h % 10; {
	case bucket >= 9:
		tier = domain.RiskHigh
	case bucket >= 6:
		tier = domain.RiskMedium
	}

	return Assessment{
		RiskTier:   tier,
		Confidence: float64(30 + (h>>8)%40),
		Indicators: []string{"Demo mode sample"},
	}
}
