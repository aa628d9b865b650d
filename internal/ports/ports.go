package ports

import (
	"context"
	"errors"
	"time"

	"FraudShield/internal/domain"
)

// Classifier turns a content unit into a well-formed result. It never fails:
// every error path is folded into the result.
type Classifier interface {
	Classify(ctx context.Context, unit domain.ContentUnit) domain.ClassificationResult
}

// RemoteClassifier talks to the remote classification endpoint.
type RemoteClassifier interface {
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.Verdict, error)
}

// ErrNoCredential is reported by a RemoteClassifier when no API key is
// configured; no request is made in that case.
var ErrNoCredential = errors.New("classifier api key not configured")

// CredentialSource provides the classifier API key; an empty key means
// "not configured".
type CredentialSource interface {
	ClassifierAPIKey(ctx context.Context) (string, error)
}

// SettingsStore persists the small user-facing settings.
type SettingsStore interface {
	CredentialSource
	ProtectionEnabled(ctx context.Context) (bool, error)
	SetProtectionEnabled(ctx context.Context, enabled bool) error
	SetClassifierAPIKey(ctx context.Context, key string) error
}

// ReportSink receives fraud reports raised from alerts.
type ReportSink interface {
	Report(ctx context.Context, report domain.FraudReport) error
}

// ReportLog is a sink that can also list what it stored.
type ReportLog interface {
	ReportSink
	Reports(ctx context.Context, limit int) ([]domain.FraudReport, error)
}

// Scheduler runs a job periodically until stopped.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
