package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsRunsAndStaleness(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	end := time.Unix(1_780_000_000, 0)
	metrics.ObserveRun("batch-import-reaper", 250*time.Millisecond, end, nil)
	metrics.ObserveRun("batch-import-reaper", time.Second, end.Add(time.Hour), errors.New("db down"))
	metrics.IncSkipped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	for outcome, want := range map[string]float64{"success": 1, "failure": 1} {
		got, err := fetchCounterValue(mfs, "printdock_cron_job_runs_total", "outcome", outcome)
		if err != nil {
			t.Fatalf("fetch %s: %v", outcome, err)
		}
		if got != want {
			t.Fatalf("expected %s=%v, got %v", outcome, want, got)
		}
	}

	// A failed run must not advance the staleness gauge.
	if got := fetchGauge(t, mfs, "printdock_cron_job_last_success_timestamp_seconds"); got != float64(end.Unix()) {
		t.Fatalf("expected last success %d, got %v", end.Unix(), got)
	}
	if got, err := fetchHistogramSum(mfs, "printdock_cron_job_duration_seconds", "job", "batch-import-reaper"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 1.25 {
		t.Fatalf("expected duration sum 1.25, got %f", got)
	}
	skipped := findMetricFamily(mfs, "printdock_cron_cycles_skipped_total")
	if skipped == nil || skipped.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatal("expected one skipped cycle")
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var nilMetrics *CronJobMetrics
	nilMetrics.ObserveRun("job", time.Second, time.Now(), nil)
	nilMetrics.IncSkipped()
	NewCronJobMetrics(nil).ObserveRun("", time.Second, time.Now(), nil)
}

func fetchGauge(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatalf("gauge %q not found", name)
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
