package rbac

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	authzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization guard decisions by permission and result.",
		},
		[]string{"permission", "result"},
	)

	contextBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "authz_context_build_duration_seconds",
			Help:    "Time spent assembling user context snapshots (cache misses).",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RegisterMetrics registers the authorization metrics with the given
// registerer, typically prometheus.DefaultRegisterer at startup.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(authzDecisions, contextBuildDuration)
}

func observeDecision(permission string, allowed bool) {
	result := "deny"
	if allowed {
		result = "allow"
	}
	authzDecisions.WithLabelValues(permission, result).Inc()
}

func observeContextBuild(d time.Duration) {
	contextBuildDuration.Observe(d.Seconds())
}
