package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loadshed_review_active_sessions",
		Help: "Number of live review sessions",
	})

	sessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadshed_review_sessions_evicted_total",
		Help: "Review sessions evicted after idling",
	})

	tableUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshed_review_table_uploads_total",
		Help: "Reference table uploads by kind and outcome",
	}, []string{"kind", "status"})

	masterListBuilds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loadshed_review_master_list_rows",
		Help:    "Rows produced per master list build",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	simulationFlags = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshed_review_simulation_flags_total",
		Help: "Flags raised by simulation edits, by severity",
	}, []string{"flag"})

	analyticsCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshed_review_analytics_cache_total",
		Help: "Analytics cache lookups by result",
	}, []string{"result"})
)
