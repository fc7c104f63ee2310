package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/factoryflow/pkg/observability"
)

type recordingHooks struct {
	observability.NoopHTTPHooks
	mu        sync.Mutex
	requests  []string
	responses []int
	errors    int
}

func (h *recordingHooks) OnRequest(_ context.Context, method, _, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, method+" "+path)
}

func (h *recordingHooks) OnResponse(_ context.Context, _, _, _ string, code int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, code)
}

func (h *recordingHooks) OnError(context.Context, string, string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors++
}

func TestInstrument(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetHTTPHooks(hooks)
	t.Cleanup(observability.Reset)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := &http.Client{Transport: Instrument(srv.Client().Transport)}
	resp, err := client.Post(srv.URL+"/react-flow", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if len(hooks.requests) != 1 || hooks.requests[0] != "POST /react-flow" {
		t.Errorf("requests = %v", hooks.requests)
	}
	if len(hooks.responses) != 1 || hooks.responses[0] != http.StatusCreated {
		t.Errorf("responses = %v", hooks.responses)
	}

	srv.Close()
	if _, err := client.Get(srv.URL); err == nil {
		t.Fatal("expected error from closed server")
	}
	if hooks.errors != 1 {
		t.Errorf("errors = %d, want 1", hooks.errors)
	}
}

func TestInstrumentIdempotent(t *testing.T) {
	rt := Instrument(nil)
	if again := Instrument(rt); again != rt {
		t.Error("Instrument wrapped an instrumented transport twice")
	}
}

func TestNewClientTimeout(t *testing.T) {
	if c := NewClient(0); c.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v", c.Timeout)
	}
	if c := NewClient(time.Second); c.Timeout != time.Second {
		t.Errorf("timeout = %v", c.Timeout)
	}
}
