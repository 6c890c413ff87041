package progression

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts engine outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	visits             *prometheus.CounterVec
	pointsCredited     prometheus.Counter
	storylinesStarted  prometheus.Counter
	storylinesDone     prometheus.Counter
	evaluationFailures prometheus.Counter
	trophies           *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		visits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exploration",
			Subsystem: "progression",
			Name:      "visits_total",
			Help:      "Visit attempts by result.",
		}, []string{"result"}),
		pointsCredited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "exploration",
			Subsystem: "progression",
			Name:      "points_credited_total",
			Help:      "Points credited to accounts.",
		}),
		storylinesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "exploration",
			Subsystem: "progression",
			Name:      "storylines_started_total",
			Help:      "Storylines begun by accounts.",
		}),
		storylinesDone: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "exploration",
			Subsystem: "progression",
			Name:      "storylines_completed_total",
			Help:      "Storyline completions stamped.",
		}),
		evaluationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "exploration",
			Subsystem: "progression",
			Name:      "storyline_evaluation_failures_total",
			Help:      "Storyline evaluations that failed and were rolled back.",
		}),
		trophies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exploration",
			Subsystem: "progression",
			Name:      "trophy_awards_total",
			Help:      "Trophy award attempts by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) visitRecorded(outcome VisitOutcome) {
	if m == nil {
		return
	}
	m.visits.WithLabelValues("recorded").Inc()
	m.pointsCredited.Add(float64(outcome.PointsAwarded))
	m.storylinesDone.Add(float64(len(outcome.CompletedStorylines)))
	m.evaluationFailures.Add(float64(len(outcome.Failures)))
}

func (m *Metrics) visitFailed(err error) {
	if m == nil {
		return
	}
	m.visits.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) storylineStarted(p Participation) {
	if m == nil {
		return
	}
	m.storylinesStarted.Inc()
	if p.Completed() {
		m.storylinesDone.Inc()
	}
}

func (m *Metrics) trophyResult(err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.trophies.WithLabelValues("awarded").Inc()
		return
	}
	m.trophies.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		return "invalid"
	default:
		return "error"
	}
}
