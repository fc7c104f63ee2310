package prom

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.SyncTotal == nil || r.APIRequestsTotal == nil || r.LayoutsTotal == nil {
		t.Fatal("metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestSyncHooksCountRuns(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	r.OnSyncComplete(ctx, "F1", "create", 100*time.Millisecond, nil)
	r.OnSyncComplete(ctx, "F1", "create", 100*time.Millisecond, nil)
	r.OnSyncComplete(ctx, "F1", "partial", 100*time.Millisecond, errors.New("boom"))

	counter, err := r.SyncTotal.GetMetricWithLabelValues("create", "success")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("create/success = %v, want 2", metric.Counter.GetValue())
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.OnResponse(context.Background(), "PATCH", "api.example.com", "/react-flow/F1", 200, time.Millisecond)
	r.OnAction(context.Background(), "connect", true)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{"factoryflow_api_requests_total", "factoryflow_editor_actions_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
