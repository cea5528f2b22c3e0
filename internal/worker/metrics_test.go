package worker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.Observe("w1", "sync", "done", 0.2)
	m.Observe("w1", "sync", "done", 0.3)
	m.Observe("w1", "prices", "error", 1.5)

	done := m.completed.WithLabelValues("w1", "sync", "done")
	if got := testutil.ToFloat64(done); got != 2 {
		t.Fatalf("done counter = %v, want 2", got)
	}
	failed := m.completed.WithLabelValues("w1", "prices", "error")
	if got := testutil.ToFloat64(failed); got != 1 {
		t.Fatalf("error counter = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	if !names["indy_worker_tasks_total"] || !names["indy_worker_task_duration_seconds"] {
		t.Fatalf("expected both metric families, got %v", names)
	}
}
