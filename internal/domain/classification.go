package domain

import (
	"math"
	"strings"
	"time"
)

// RiskTier is the coarse outcome of a classification.
type RiskTier int

const (
	RiskLow RiskTier = iota + 1
	RiskMedium
	RiskHigh
)

// String returns the lower-case wire name of the tier.
func (t RiskTier) String() string {
	switch t {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the three defined tiers.
func (t RiskTier) Valid() bool {
	return t >= RiskLow && t <= RiskHigh
}

// MarshalText encodes the tier by name.
func (t RiskTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts any casing; unknown names decode as medium.
func (t *RiskTier) UnmarshalText(text []byte) error {
	tier, ok := ParseRiskTier(string(text))
	if !ok {
		tier = RiskMedium
	}
	*t = tier
	return nil
}

// ParseRiskTier maps a free-form risk word to a tier.
func ParseRiskTier(value string) (RiskTier, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return RiskLow, true
	case "medium", "moderate":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	default:
		return RiskMedium, false
	}
}

// SourceTier records where a classification result came from.
type SourceTier string

const (
	SourceRemote    SourceTier = "remote"
	SourceHeuristic SourceTier = "heuristic_fallback"
	SourceDemo      SourceTier = "demo_fallback"
)

// Outcome describes how healthy the pipeline run that produced a result was.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// DefaultConfidence is used when a confidence value is absent or not a number.
const DefaultConfidence = 50

// ClassificationResult is the output of the classification pipeline for one content unit.
// RiskTier and Confidence are always populated, whatever the outcome.
type ClassificationResult struct {
	Outcome           Outcome    `json:"outcome"`
	RiskTier          RiskTier   `json:"riskTier"`
	Confidence        float64    `json:"confidence"`
	Indicators        []string   `json:"indicators"`
	Explanation       string     `json:"explanation"`
	RecommendedAction string     `json:"recommendedAction"`
	SourceTier        SourceTier `json:"sourceTier"`
	ClassifiedAt      time.Time  `json:"classifiedAt"`
}

// Normalized returns a copy with tier and confidence forced into range.
func (r ClassificationResult) Normalized() ClassificationResult {
	if !r.RiskTier.Valid() {
		r.RiskTier = RiskMedium
	}
	r.Confidence = ClampConfidence(r.Confidence)
	if r.Outcome == "" {
		r.Outcome = OutcomeDegraded
	}
	if r.SourceTier == "" {
		r.SourceTier = SourceHeuristic
	}
	if r.Indicators == nil {
		r.Indicators = []string{}
	}
	return r
}

// ClampConfidence keeps v in [0,100]; NaN becomes DefaultConfidence.
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return DefaultConfidence
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Verdict is a normalized answer from the remote classifier.
type Verdict struct {
	RiskTier          RiskTier
	Confidence        float64
	Indicators        []string
	Explanation       string
	RecommendedAction string
	// Repaired is set when the verdict was recovered from free text instead of JSON.
	Repaired bool
	Raw      string
}

// AnalysisRequest is what the remote classifier receives for one unit.
type AnalysisRequest struct {
	UnitID  string
	Content string
	URL     string
	Context string
}
