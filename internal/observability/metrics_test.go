package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.IncSideEffectFailure("streak")
	m.IncAggregateConflict("op")
	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestWritePrometheusRendersProgressSeries(t *testing.T) {
	m := NewMetrics()
	m.ObserveAggregateOperation("progress.streak.register", "success", 20*time.Millisecond)
	m.IncAggregateConflict("progress.streak.register")
	m.IncSideEffectFailure("achievements")
	m.IncSideEffectFailure("achievements")
	m.IncCertificateIssued()
	m.IncAchievementUnlocked("lessons_5")
	m.ApiInflightInc()
	m.ApiInflightDec()

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`progress_side_effect_failures_total{step="achievements"} 2.000000`,
		`progress_aggregate_conflicts_total{operation="progress.streak.register"} 1.000000`,
		`progress_aggregate_operation_duration_seconds_bucket{operation="progress.streak.register",status="success",le="0.025"} 1`,
		`progress_certificates_issued_total 1.000000`,
		`progress_achievements_unlocked_total{code="lessons_5"} 1.000000`,
		`progress_api_inflight_requests 0.000000`,
		"# TYPE progress_api_request_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"route"}, []string{"a\"b\\c"})
	if got != `{route="a\"b\\c"}` {
		t.Fatalf("labelString: %s", got)
	}
	if got := withLe("", "+Inf"); got != `{le="+Inf"}` {
		t.Fatalf("withLe: %s", got)
	}
}

func TestEnabled(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "yes")
	if !Enabled() {
		t.Fatalf("expected enabled")
	}
	t.Setenv("METRICS_ENABLED", "")
	if Enabled() {
		t.Fatalf("expected disabled")
	}
}
