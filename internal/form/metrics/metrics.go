package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the form engine. Counters are labelled
// by form type so one noisy form can be told apart from the rest.
type Metrics struct {
	SessionsOpened      *prometheus.CounterVec
	SessionsResumed     *prometheus.CounterVec
	AnswersCommitted    *prometheus.CounterVec
	Submissions         *prometheus.CounterVec
	Cancellations       *prometheus.CounterVec
	ValidationFailures  *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	TransitionDuration  *prometheus.HistogramVec
}

// New creates a Metrics instance with all form engine metrics registered.
func New() *Metrics {
	return &Metrics{
		SessionsOpened: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formflow_sessions_opened_total",
			Help: "Total number of form sessions opened fresh",
		}, []string{"form_type"}),
		SessionsResumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formflow_sessions_resumed_total",
			Help: "Total number of form sessions resumed from a persisted record",
		}, []string{"form_type"}),
		AnswersCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formflow_answers_committed_total",
			Help: "Total number of answers validated and persisted",
		}, []string{"form_type"}),
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formflow_submissions_total",
			Help: "Total number of terminal submissions",
		}, []string{"form_type"}),
		Cancellations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formflow_cancellations_total",
			Help: "Total number of cancelled sessions",
		}, []string{"form_type"}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formflow_validation_failures_total",
			Help: "Total number of answers rejected by field validation",
		}, []string{"form_type"}),
		PersistenceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "formflow_persistence_failures_total",
			Help: "Total number of record store writes that failed",
		}, []string{"form_type"}),
		TransitionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "formflow_transition_duration_seconds",
			Help:    "Duration of state machine transitions including persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"form_type", "transition"}),
	}
}

// ObserveTransition records the duration of one transition. Call with
// time.Now() captured at the start of the operation.
func (m *Metrics) ObserveTransition(formType, transition string, start time.Time) {
	if m == nil {
		return
	}
	m.TransitionDuration.WithLabelValues(formType, transition).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncSessionsOpened(formType string) {
	if m != nil {
		m.SessionsOpened.WithLabelValues(formType).Inc()
	}
}

func (m *Metrics) IncSessionsResumed(formType string) {
	if m != nil {
		m.SessionsResumed.WithLabelValues(formType).Inc()
	}
}

func (m *Metrics) IncAnswersCommitted(formType string) {
	if m != nil {
		m.AnswersCommitted.WithLabelValues(formType).Inc()
	}
}

func (m *Metrics) IncSubmissions(formType string) {
	if m != nil {
		m.Submissions.WithLabelValues(formType).Inc()
	}
}

func (m *Metrics) IncCancellations(formType string) {
	if m != nil {
		m.Cancellations.WithLabelValues(formType).Inc()
	}
}

func (m *Metrics) IncValidationFailures(formType string) {
	if m != nil {
		m.ValidationFailures.WithLabelValues(formType).Inc()
	}
}

func (m *Metrics) IncPersistenceFailures(formType string) {
	if m != nil {
		m.PersistenceFailures.WithLabelValues(formType).Inc()
	}
}
