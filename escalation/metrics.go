package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sanctionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "triage_sanctions_applied",
	Help: "Number of sanctions applied, by action and cause",
}, []string{"action", "cause"})
