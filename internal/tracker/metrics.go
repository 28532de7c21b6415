package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_reconciliations_total",
		Help: "Reconciliation polls by result.",
	}, []string{"result"})

	baselineFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_baseline_fallbacks_total",
		Help: "New sessions whose baseline fell back to the current rank after games were already played.",
	})

	offlineQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_offline_queries_total",
		Help: "Offline record lookups.",
	})
)
