package metrics

import (
	"context"
	"errors"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EventTransitions counts lifecycle operations by action and outcome.
var EventTransitions = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_transitions_total",
		Help:      "Total number of event lifecycle operations by action and outcome",
	},
	[]string{"action", "outcome"},
)

const (
	OutcomeSuccess  = "success"
	OutcomeDenied   = "denied"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// TransitionRecorder feeds EventTransitions from the lifecycle engine.
type TransitionRecorder struct {
	counter *prometheus.CounterVec
}

var _ events.Recorder = TransitionRecorder{}

func NewTransitionRecorder() TransitionRecorder {
	return TransitionRecorder{counter: EventTransitions}
}

func (t TransitionRecorder) Record(_ context.Context, outcome events.Outcome) {
	counter := t.counter
	if counter == nil {
		counter = EventTransitions
	}
	counter.WithLabelValues(string(outcome.Action), OutcomeLabel(outcome.Err)).Inc()
}

// OutcomeLabel classifies an engine error for metric labels.
func OutcomeLabel(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, events.ErrPermissionDenied):
		return OutcomeDenied
	case errors.Is(err, events.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, events.ErrInvalidInput):
		return OutcomeInvalid
	case errors.Is(err, events.ErrInvalidTransition):
		return OutcomeConflict
	default:
		return OutcomeError
	}
}
