package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"FraudShield/internal/domain"
	"FraudShield/internal/heuristic"
	"FraudShield/internal/logging"
	"FraudShield/internal/ports"
)

// ErrContentTooShort marks units below the minimum length. It never leaves
// the classifier; the unit gets a degraded result instead.
var ErrContentTooShort = errors.New("content too short to classify")

const (
	defaultMinContentChars = 50

	actionHigh   = "Do not click links or reply. Never share passwords or payment details with this sender."
	actionMedium = "Exercise caution and verify the sender through a channel you already trust."
	actionLow    = "No action needed, but stay alert for unexpected requests."
)

// ClassifierDeps wires the collaborators of the classification pipeline.
type ClassifierDeps struct {
	Remote     ports.RemoteClassifier
	Heuristics *heuristic.Engine
	Logger     *slog.Logger
	// MinContentChars is the shortest text worth sending out; 0 means 50.
	MinContentChars int
	DemoMode        bool
}

// Classifier implements ports.Classifier: remote first, then keyword
// heuristics, then the opt-in demo tier.
type Classifier struct {
	remote     ports.RemoteClassifier
	heuristics *heuristic.Engine
	logger     *slog.Logger
	minChars   int
	demo       bool
	now        func() time.Time
	inflight   singleflight.Group
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier constructs the pipeline.
func NewClassifier(deps ClassifierDeps) *Classifier {
	engine := deps.Heuristics
	if engine == nil {
		engine = heuristic.New()
	}
	minChars := deps.MinContentChars
	if minChars <= 0 {
		minChars = defaultMinContentChars
	}
	return &Classifier{
		remote:     deps.Remote,
		heuristics: engine,
		logger:     logging.Component(deps.Logger, "classifier"),
		minChars:   minChars,
		demo:       deps.DemoMode,
		now:        time.Now,
	}
}

// Classify never fails. Concurrent calls for the same unit id share one run.
func (c *Classifier) Classify(ctx context.Context, unit domain.ContentUnit) domain.ClassificationResult {
	if unit.ID == "" {
		return c.classify(ctx, unit)
	}
	v, _, _ := c.inflight.Do(unit.ID, func() (any, error) {
		return c.classify(ctx, unit), nil
	})
	return v.(domain.ClassificationResult)
}

func (c *Classifier) classify(ctx context.Context, unit domain.ContentUnit) (result domain.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("classification panicked", "unit", unit.ID, "panic", r)
			result = c.inconclusive(fmt.Errorf("panic: %v", r))
		}
		result.ClassifiedAt = c.now()
		result = result.Normalized()
	}()

	text := strings.TrimSpace(unit.Text)
	if utf8.RuneCountInString(text) < c.minChars {
		c.logger.Debug("skipping remote call", "unit", unit.ID, "chars", utf8.RuneCountInString(text), "err", ErrContentTooShort)
		return domain.ClassificationResult{
			Outcome:           domain.OutcomeDegraded,
			RiskTier:          domain.RiskMedium,
			Confidence:        domain.DefaultConfidence,
			Indicators:        []string{"Insufficient content"},
			Explanation:       "There was insufficient content to analyze this item reliably.",
			RecommendedAction: actionMedium,
			SourceTier:        domain.SourceHeuristic,
		}
	}

	remoteErr := c.callRemote(ctx, unit, text, &result)
	if remoteErr == nil {
		return result
	}

	noCredential := errors.Is(remoteErr, ports.ErrNoCredential)
	outcome := domain.OutcomeFailed
	if noCredential {
		outcome = domain.OutcomeDegraded
		c.logger.Debug("remote classifier not configured", "unit", unit.ID)
	} else {
		c.logger.Warn("remote classification failed", "unit", unit.ID, "err", remoteErr)
	}

	if a := c.heuristics.Assess(text); a.Matched() {
		c.logger.Info("heuristic fallback matched", "unit", unit.ID, "tier", a.RiskTier.String(), "indicators", a.Indicators)
		return domain.ClassificationResult{
			Outcome:           outcome,
			RiskTier:          a.RiskTier,
			Confidence:        a.Confidence,
			Indicators:        a.Indicators,
			Explanation:       "Automated analysis was unavailable. Keyword screening found: " + strings.Join(a.Indicators, ", ") + ".",
			RecommendedAction: actionFor(a.RiskTier),
			SourceTier:        domain.SourceHeuristic,
		}
	}

	if c.demo {
		a := heuristic.Demo(text)
		c.logger.Info("demo fallback used", "unit", unit.ID, "tier", a.RiskTier.String())
		return domain.ClassificationResult{
			Outcome:           domain.OutcomeDegraded,
			RiskTier:          a.RiskTier,
			Confidence:        a.Confidence,
			Indicators:        a.Indicators,
			Explanation:       "Demo mode: this rating is a sample and is not based on real analysis.",
			RecommendedAction: actionFor(a.RiskTier),
			SourceTier:        domain.SourceDemo,
		}
	}

	if !noCredential {
		return c.inconclusive(remoteErr)
	}

	a := c.heuristics.Assess(text)
	return domain.ClassificationResult{
		Outcome:           domain.OutcomeDegraded,
		RiskTier:          domain.RiskLow,
		Confidence:        a.Confidence,
		Indicators:        []string{},
		Explanation:       "Keyword screening found no fraud indicators. Remote analysis is not configured.",
		RecommendedAction: actionLow,
		SourceTier:        domain.SourceHeuristic,
	}
}

// callRemote fills result on success and returns the remote error otherwise.
func (c *Classifier) callRemote(ctx context.Context, unit domain.ContentUnit, text string, result *domain.ClassificationResult) error {
	if c.remote == nil {
		return ports.ErrNoCredential
	}

	verdict, err := c.remote.Analyze(ctx, domain.AnalysisRequest{
		UnitID:  unit.ID,
		Content: text,
		URL:     unit.URL,
		Context: unitContext(unit),
	})
	if err != nil {
		return err
	}

	outcome := domain.OutcomeSuccess
	if verdict.Repaired {
		outcome = domain.OutcomeDegraded
	}
	c.logger.Debug("remote verdict", "unit", unit.ID, "tier", verdict.RiskTier.String(), "confidence", verdict.Confidence, "repaired", verdict.Repaired)

	*result = domain.ClassificationResult{
		Outcome:           outcome,
		RiskTier:          verdict.RiskTier,
		Confidence:        verdict.Confidence,
		Indicators:        verdict.Indicators,
		Explanation:       verdict.Explanation,
		RecommendedAction: verdict.RecommendedAction,
		SourceTier:        domain.SourceRemote,
	}
	return nil
}

func (c *Classifier) inconclusive(cause error) domain.ClassificationResult {
	c.logger.Debug("classification inconclusive", "cause", cause)
	return domain.ClassificationResult{
		Outcome:           domain.OutcomeFailed,
		RiskTier:          domain.RiskMedium,
		Confidence:        domain.DefaultConfidence,
		Indicators:        []string{"Analysis inconclusive"},
		Explanation:       "Analysis was inconclusive. Treat this content with caution.",
		RecommendedAction: actionMedium,
		SourceTier:        domain.SourceHeuristic,
	}
}

func unitContext(unit domain.ContentUnit) string {
	parts := make([]string, 0, 3)
	if unit.Platform != "" {
		parts = append(parts, "Platform: "+unit.Platform)
	}
	if unit.Sender != "" {
		parts = append(parts, "Sender: "+unit.Sender)
	}
	if unit.Context != "" {
		parts = append(parts, unit.Context)
	}
	return strings.Join(parts, "\n")
}

func actionFor(tier domain.RiskTier) string {
	switch tier {
	case domain.RiskHigh:
		return actionHigh
	case domain.RiskLow:
		return actionLow
	default:
		return actionMedium
	}
}
