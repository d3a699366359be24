package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCronJobMetricsRegistersNamespacedSeries(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveDuration("sweep", 250*time.Millisecond)
	m.IncSuccess("sweep")
	m.IncFailure("")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	want := map[string]bool{
		"innkeep_job_duration_seconds": false,
		"innkeep_job_success":          false,
		"innkeep_job_failure":          false,
	}
	for _, family := range families {
		if _, ok := want[family.GetName()]; ok {
			want[family.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("metric %s not registered", name)
		}
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	t.Parallel()
	var m *CronJobMetrics
	m.ObserveDuration("sweep", time.Second)
	m.IncSuccess("sweep")
	m.IncFailure("sweep")

	unregistered := NewCronJobMetrics(nil)
	unregistered.IncSuccess("sweep")
}
