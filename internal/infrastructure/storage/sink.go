package storage

import (
	"context"
	"errors"
	"fmt"

	"FraudShield/internal/domain"
	"FraudShield/internal/ports"
)

// MultiSink forwards each report to every configured sink. All sinks are
// tried; their errors are joined.
type MultiSink []ports.ReportSink

var _ ports.ReportSink = MultiSink(nil)

// NewMultiSink drops nil sinks.
func NewMultiSink(sinks ...ports.ReportSink) MultiSink {
	out := make(MultiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m MultiSink) Report(ctx context.Context, report domain.FraudReport) error {
	var errs []error
	for i, s := range m {
		if err := s.Report(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
