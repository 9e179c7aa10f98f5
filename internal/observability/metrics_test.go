package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/spigell/hh-interviewer/internal/ai"
)

func TestObserveModelRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test", prometheus.NewRegistry())

	m.ObserveModelRequest("interview_turn", time.Second, nil)
	m.ObserveModelRequest("interview_turn", time.Second, ai.NewRequestError("mock", ai.KindRateLimit, errors.New("429")))
	m.ObserveModelRequest("feedback", time.Second, errors.New("boom"))

	if got := testutil.ToFloat64(m.ModelRequests.WithLabelValues("interview_turn", "ok")); got != 1 {
		t.Fatalf("expected 1 successful turn request, got %v", got)
	}
	if got := testutil.ToFloat64(m.ModelRequests.WithLabelValues("interview_turn", "rate_limit")); got != 1 {
		t.Fatalf("expected 1 rate limited request, got %v", got)
	}
	if got := testutil.ToFloat64(m.ModelRequests.WithLabelValues("feedback", "unknown")); got != 1 {
		t.Fatalf("expected 1 unknown failure, got %v", got)
	}
}

func TestCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test", prometheus.NewRegistry())

	m.ObserveTurn("accepted")
	m.ObserveTurn("accepted")
	m.ObserveTransition("chat_complete")
	m.ObserveWSMessage("in", "turn")

	if got := testutil.ToFloat64(m.UserTurns.WithLabelValues("accepted")); got != 2 {
		t.Fatalf("expected 2 accepted turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("chat_complete")); got != 1 {
		t.Fatalf("expected 1 transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.WSMessages.WithLabelValues("in", "turn")); got != 1 {
		t.Fatalf("expected 1 ws message, got %v", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	t.Parallel()

	m := NewMetrics("interviewer", prometheus.NewRegistry())
	m.ObserveTurn("rejected")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `interviewer_user_turns_total{result="rejected"} 1`) {
		t.Fatalf("metric missing from output:\n%s", rec.Body.String())
	}
}
