package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "triage_events_processed",
	Help: "Number of inbound events processed",
}, []string{"type"})

var autoActionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "triage_auto_actions",
	Help: "Number of automated threshold actions taken",
}, []string{"action"})

var casesEnqueuedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "triage_cases_enqueued",
	Help: "Number of cases pushed into the review queue",
})

var reviewsCompletedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "triage_reviews_completed",
	Help: "Number of review sessions reaching a terminal decision",
})

var scorerErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "triage_scorer_errors",
	Help: "Number of failed calls to the external score provider",
})
