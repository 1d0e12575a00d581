package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveIngest("success", 120*time.Millisecond)
	m.ObserveIngest("success", 80*time.Millisecond)
	m.ObserveIngest("rate_limited", time.Millisecond)
	m.ObserveDocument("signature", "stored")

	if got := testutil.ToFloat64(m.requests.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successful requests, but got %v", got)
	}
	if got := testutil.ToFloat64(m.documents.WithLabelValues("signature", "stored")); got != 1 {
		t.Errorf("expected 1 stored signature, but got %v", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Errorf("expected one histogram, but got %d", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveIngest("invalid_input", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `onboarding_ingest_requests_total{outcome="invalid_input"} 1`) {
		t.Errorf("expected ingest counter in exposition, but got:\n%s", string(body))
	}
}
