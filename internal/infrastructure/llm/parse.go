package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"FraudShield/internal/domain"
)

const (
	defaultExplanation     = "No detailed explanation provided."
	defaultAction          = "Exercise caution when interacting with this content."
	repairedAction         = "Review this content carefully before proceeding."
	repairedExplanationLen = 300
)

// ErrNoVerdict means neither a JSON object nor a risk word could be found in a reply.
var ErrNoVerdict = errors.New("no verdict in classifier reply")

var (
	riskWordPattern   = regexp.MustCompile(`(?i)risk(?:\s+level)?:?\s*(low|medium|high)`)
	confidencePattern = regexp.MustCompile(`(?i)confidence:?\s*(\d+(?:\.\d+)?)`)
)

type rawVerdict struct {
	RiskLevel         *string         `json:"riskLevel"`
	Confidence        json.RawMessage `json:"confidence"`
	Indicators        json.RawMessage `json:"indicators"`
	Explanation       string          `json:"explanation"`
	RecommendedAction string          `json:"recommendedAction"`
}

func (r rawVerdict) usable() bool {
	return r.RiskLevel != nil || len(r.Confidence) > 0
}

// ParseVerdict extracts a verdict from the assistant message. It prefers the
// first embedded JSON object carrying riskLevel or confidence, then falls back
// to matching "risk: <word>" and "confidence: <n>" in free text.
func ParseVerdict(reply string) (domain.Verdict, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return domain.Verdict{}, ErrNoVerdict
	}

	if raw, ok := extractJSON(reply); ok {
		return fromJSON(raw, reply), nil
	}
	return fromText(reply)
}

func extractJSON(reply string) (rawVerdict, bool) {
	for i := 0; i < len(reply); i++ {
		if reply[i] != '{' {
			continue
		}
		var raw rawVerdict
		dec := json.NewDecoder(strings.NewReader(reply[i:]))
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		if raw.usable() {
			return raw, true
		}
	}
	return rawVerdict{}, false
}

func fromJSON(raw rawVerdict, reply string) domain.Verdict {
	tier := domain.RiskMedium
	if raw.RiskLevel != nil {
		tier, _ = domain.ParseRiskTier(*raw.RiskLevel)
	}

	explanation := strings.TrimSpace(raw.Explanation)
	if explanation == "" {
		explanation = defaultExplanation
	}
	action := strings.TrimSpace(raw.RecommendedAction)
	if action == "" {
		action = defaultAction
	}

	return domain.Verdict{
		RiskTier:          tier,
		Confidence:        domain.ClampConfidence(parseConfidence(raw.Confidence)),
		Indicators:        parseIndicators(raw.Indicators),
		Explanation:       explanation,
		RecommendedAction: action,
		Raw:               reply,
	}
}

func fromText(reply string) (domain.Verdict, error) {
	match := riskWordPattern.FindStringSubmatch(reply)
	if match == nil {
		return domain.Verdict{}, ErrNoVerdict
	}
	tier, _ := domain.ParseRiskTier(match[1])

	confidence := float64(domain.DefaultConfidence)
	if m := confidencePattern.FindStringSubmatch(reply); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			confidence = v
		}
	}

	return domain.Verdict{
		RiskTier:          tier,
		Confidence:        domain.ClampConfidence(confidence),
		Indicators:        []string{},
		Explanation:       prefix(reply, repairedExplanationLen),
		RecommendedAction: repairedAction,
		Repaired:          true,
		Raw:               reply,
	}, nil
}

func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return domain.DefaultConfidence
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return domain.DefaultConfidence
}

func parseIndicators(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return out
	}
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
