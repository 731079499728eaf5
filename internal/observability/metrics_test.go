package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveEnrich("enriched", time.Millisecond)
	m.IncVote("up")
	m.IncEvent("idea.created", true)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestInitDisabledReturnsNil(t *testing.T) {
	if m := Init(nil, false); m != nil {
		t.Fatalf("expected nil metrics when disabled")
	}
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/api/ideas/:id", "200", 20*time.Millisecond)
	m.ObserveAPI("GET", "/api/ideas/:id", "200", 2*time.Second)
	m.ObserveEnrich("enriched", time.Millisecond)
	m.ObserveEnrich("skipped", 0)
	m.ObserveEnrich("skipped", 0)
	m.IncVote("up")

	if got := m.EnrichCount("skipped"); got != 2 {
		t.Fatalf("EnrichCount(skipped)=%v", got)
	}
	if got := m.VoteCount("up"); got != 1 {
		t.Fatalf("VoteCount(up)=%v", got)
	}

	rec := httptest.NewRecorder()
	m.WriteHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE kf_api_requests_total counter",
		`kf_api_requests_total{method="GET",route="/api/ideas/:id",status="200"} 2`,
		`kf_api_request_duration_seconds_bucket{method="GET",route="/api/ideas/:id",status="200",le="0.025"} 1`,
		`kf_api_request_duration_seconds_bucket{method="GET",route="/api/ideas/:id",status="200",le="+Inf"} 2`,
		`kf_enrich_total{outcome="skipped"} 2`,
		`kf_votes_total{direction="up"} 1`,
		"# TYPE kf_api_inflight_requests gauge",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestLabelEscaping(t *testing.T) {
	got := labelString([]string{"a", "b"}, []string{`x"y`, ""})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString=%s", got)
	}
	if got := withLe("", "1"); got != `{le="1"}` {
		t.Fatalf("withLe=%s", got)
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders("a=1, b = 2,bad,=x")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("ParseHeaders=%v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("expected nil for empty headers")
	}
}
