package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dyndns_reconciliations_total",
		Help: "Number of reconciliations by outcome",
	}, []string{"outcome"})
	pushCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dyndns_provider_pushes_total",
		Help: "Number of provider pushes by result",
	}, []string{"result"})
	inconsistencyCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dyndns_inconsistencies_total",
		Help: "Number of addresses pushed to the provider but not stored",
	})
	touchFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dyndns_touch_failures_total",
		Help: "Number of failed last-touched refreshes",
	})
	staleGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dyndns_stale_hosts",
		Help: "Number of hosts not seen within the stale window",
	})
)

// Outcome label for failed reconciliations.
const outcomeError = "error"
