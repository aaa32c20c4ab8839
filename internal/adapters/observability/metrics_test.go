package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"doctor_reputation/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample per family so they show up in the exposition
	observability.ObserveHTTP("/v1/search", "GET", 200, 12*time.Millisecond)
	observability.ObserveSource("rms", "search", "ok")
	observability.ObserveSummarizer("openai", "ok")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{"docrep_http_requests_total", "docrep_source_outcomes_total", "docrep_summarizer_calls_total"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestNewLogger_Env(t *testing.T) {
	l := observability.NewLogger("dev")
	l.Info().Msg("console logger works")
	l = observability.NewLogger("prod")
	l.Info().Msg("json logger works")
}

func TestServe_DisabledWithoutAddr(t *testing.T) {
	if srv := observability.Serve("", observability.InitRegistry()); srv != nil {
		t.Fatalf("expected no metrics server, got %v", srv.Addr)
	}
}
