package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spigell/hh-interviewer/internal/ai"
)

const outcomeOK = "ok"

// Metrics groups all Prometheus instruments used by the interviewer.
type Metrics struct {
	ModelRequests *prometheus.CounterVec
	ModelLatency  *prometheus.HistogramVec
	UserTurns     *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	WSMessages    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the instruments on reg. Passing a fresh registry keeps
// tests independent from the global default one.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ModelRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Language model requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ModelLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_request_duration_seconds",
			Help:      "Language model request duration by operation.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"operation"}),
		UserTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_turns_total",
			Help:      "Candidate replies by result.",
		}, []string{"result"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Interview phase transitions by target phase.",
		}, []string{"phase"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		gatherer: reg,
	}
}

// ObserveModelRequest records a model call. Failures are labelled with their
// error kind.
func (m *Metrics) ObserveModelRequest(operation string, elapsed time.Duration, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = string(ai.KindOf(err))
	}

	m.ModelRequests.WithLabelValues(operation, outcome).Inc()
	m.ModelLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTurn(result string) {
	m.UserTurns.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTransition(phase string) {
	m.Transitions.WithLabelValues(phase).Inc()
}

func (m *Metrics) ObserveWSMessage(direction, kind string) {
	m.WSMessages.WithLabelValues(direction, kind).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
