package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumWhere(t *testing.T, met *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", met.Name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecordCandidate(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCandidate(ctx, "")
	m.RecordCandidate(ctx, "")
	m.RecordCandidate(ctx, "incomparable")

	rm := collect(t, reader)
	candidates := findMetric(rm, "acousticmatch.match.candidates")
	if candidates == nil {
		t.Fatal("candidates metric not found")
	}
	if got := sumWhere(t, candidates, "status", "ok"); got != 2 {
		t.Errorf("ok candidates = %d, want 2", got)
	}
	if got := sumWhere(t, candidates, "status", "failed"); got != 1 {
		t.Errorf("failed candidates = %d, want 1", got)
	}

	failures := findMetric(rm, "acousticmatch.match.candidate_failures")
	if failures == nil {
		t.Fatal("failures metric not found")
	}
	if got := sumWhere(t, failures, "reason", "incomparable"); got != 1 {
		t.Errorf("incomparable failures = %d, want 1", got)
	}
}

func TestHistograms(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordMatch(ctx, 120*time.Millisecond, true)
	m.RecordMatch(ctx, 2*time.Second, false)
	m.RecordHTTPRequest(ctx, "POST", "/api/match", 200, 50*time.Millisecond)

	rm := collect(t, reader)
	for name, want := range map[string]uint64{
		"acousticmatch.match.duration":        2,
		"acousticmatch.http.request.duration": 1,
	} {
		met := findMetric(rm, name)
		if met == nil {
			t.Fatalf("metric %q not found", name)
		}
		hist, ok := met.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Fatalf("metric %q is not a histogram", name)
		}
		var count uint64
		for _, dp := range hist.DataPoints {
			count += dp.Count
		}
		if count != want {
			t.Errorf("%s count = %d, want %d", name, count, want)
		}
	}
}

func TestRecordingsAdded(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordRecordingAdded(context.Background(), "file")
	m.RecordRecordingAdded(context.Background(), "signal")

	met := findMetric(collect(t, reader), "acousticmatch.recordings.added")
	if met == nil {
		t.Fatal("metric not found")
	}
	if got := sumWhere(t, met, "source", "file"); got != 1 {
		t.Errorf("file additions = %d, want 1", got)
	}
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
}
