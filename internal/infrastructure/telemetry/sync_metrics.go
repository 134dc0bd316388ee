package telemetry

import (
	"context"
	"fmt"
	"time"

	apporig "github.com/finhub/backend/internal/application/origination"
	"github.com/finhub/backend/internal/domain/origination"
	"github.com/finhub/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetrics records bank calls and lifecycle transitions as OpenTelemetry instruments
type SyncMetrics struct {
	bankCalls    metric.Int64Counter
	bankDuration metric.Float64Histogram
	transitions  metric.Int64Counter
	stalled      metric.Int64Gauge
}

// NewSyncMetrics creates the instruments on meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	bankCalls, err := meter.Int64Counter("bank_calls_total",
		metric.WithDescription("Calls to the partner bank by operation and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bank_calls_total: %w", err)
	}

	bankDuration, err := meter.Float64Histogram("bank_call_duration_seconds",
		metric.WithDescription("Latency of partner bank calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bank_call_duration_seconds: %w", err)
	}

	transitions, err := meter.Int64Counter("application_transitions_total",
		metric.WithDescription("Application status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create application_transitions_total: %w", err)
	}

	stalled, err := meter.Int64Gauge("applications_stalled",
		metric.WithDescription("Applications without progress found by the last stalled check"),
		metric.WithUnit("{application}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create applications_stalled: %w", err)
	}

	return &SyncMetrics{
		bankCalls:    bankCalls,
		bankDuration: bankDuration,
		transitions:  transitions,
		stalled:      stalled,
	}, nil
}

// RecordBankCall counts the call and its latency. Outcome is "ok" or the error code.
func (m *SyncMetrics) RecordBankCall(ctx context.Context, operation string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = shared.ErrorCode(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	m.bankCalls.Add(ctx, 1, attrs)
	m.bankDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordTransition counts a status change
func (m *SyncMetrics) RecordTransition(ctx context.Context, from, to origination.ApplicationStatus) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

// RecordStalled sets the stalled gauge
func (m *SyncMetrics) RecordStalled(ctx context.Context, count int) {
	m.stalled.Record(ctx, int64(count))
}

// Ensure SyncMetrics implements the application port
var _ apporig.SyncMetrics = (*SyncMetrics)(nil)
