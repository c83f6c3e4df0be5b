package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "test-job"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "job_success", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "job_failure", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestMarketplaceMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMarketplaceMetrics(reg)

	metrics.IncOrderCreated("PENDING")
	metrics.IncPaymentSettled()
	metrics.AddSettlementAmount(decimal.NewFromInt(517500))
	metrics.IncChainBreak()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_created_total", "status", "PENDING"); err != nil {
		t.Fatalf("fetch orders: %v", err)
	} else if got != 1 {
		t.Fatalf("expected orders=1, got %f", got)
	}

	if got := fetchScalarCounter(t, mfs, "settlement_amount_total"); got != 517500 {
		t.Fatalf("expected settlement amount 517500, got %f", got)
	}
	if got := fetchScalarCounter(t, mfs, "provenance_chain_breaks_total"); got != 1 {
		t.Fatalf("expected chain breaks 1, got %f", got)
	}
	if got := fetchScalarCounter(t, mfs, "payments_settled_total"); got != 1 {
		t.Fatalf("expected payments settled 1, got %f", got)
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	cron := NewCronJobMetrics(nil)
	cron.ObserveDuration("job", time.Second)
	cron.IncSuccess("job")
	cron.IncFailure("job")

	market := NewMarketplaceMetrics(nil)
	market.IncOrderCreated("PENDING")
	market.IncPaymentSettled()
	market.AddSettlementAmount(decimal.NewFromInt(1))
	market.IncChainBreak()
}

func fetchScalarCounter(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		t.Fatalf("metric %q not found", name)
	}
	metrics := mf.GetMetric()
	if len(metrics) != 1 {
		t.Fatalf("metric %q has %d series, want 1", name, len(metrics))
	}
	return metrics[0].GetCounter().GetValue()
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
