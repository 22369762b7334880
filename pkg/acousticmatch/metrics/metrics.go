// Package metrics holds the OpenTelemetry instruments recorded by the
// matching service and HTTP server. Tests should build their own [Metrics]
// with [NewMetrics] over an isolated provider; production code uses
// [DefaultMetrics] after [InitProvider].
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/himanishpuri/AcousticMatch"

// Metrics holds every instrument. All fields are safe for concurrent use.
type Metrics struct {
	// MatchDuration tracks a full corpus scan, decode excluded.
	MatchDuration metric.Float64Histogram

	// MatchCandidates counts scored candidates. Attribute "status" is
	// "ok" or "failed".
	MatchCandidates metric.Int64Counter

	// CandidateFailures counts candidates skipped by reason
	// ("empty", "incomparable", "cancelled", "error").
	CandidateFailures metric.Int64Counter

	RecordingsAdded metric.Int64Counter

	// HTTPRequestDuration uses attributes "method", "path" and "status".
	HTTPRequestDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.MatchDuration, err = m.Float64Histogram("acousticmatch.match.duration",
		metric.WithDescription("Latency of a corpus scan."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MatchCandidates, err = m.Int64Counter("acousticmatch.match.candidates",
		metric.WithDescription("Candidates evaluated by status."),
	); err != nil {
		return nil, err
	}
	if met.CandidateFailures, err = m.Int64Counter("acousticmatch.match.candidate_failures",
		metric.WithDescription("Candidates that could not be scored, by reason."),
	); err != nil {
		return nil, err
	}
	if met.RecordingsAdded, err = m.Int64Counter("acousticmatch.recordings.added",
		metric.WithDescription("Reference recordings stored."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("acousticmatch.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide instance built on the global
// meter provider. Call InitProvider first for the values to be exported.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordMatch(ctx context.Context, d time.Duration, complete bool) {
	m.MatchDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.Bool("complete", complete)))
}

func (m *Metrics) RecordCandidate(ctx context.Context, failureReason string) {
	status := "ok"
	if failureReason != "" {
		status = "failed"
		m.CandidateFailures.Add(ctx, 1,
			metric.WithAttributes(attribute.String("reason", failureReason)))
	}
	m.MatchCandidates.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) RecordRecordingAdded(ctx context.Context, source string) {
	m.RecordingsAdded.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, d time.Duration) {
	m.HTTPRequestDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path),
			attribute.Int("status", status),
		),
	)
}
