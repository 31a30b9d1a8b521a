package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-path counters. Registered on the default registry and served
// by promhttp on /metrics.
var (
	// RedirectsServed counts resolved short-code redirects.
	RedirectsServed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linksight",
		Name:      "redirects_served_total",
		Help:      "Number of short-code redirects served.",
	})

	// VisitLogFailures counts visit-log writes that failed after the
	// redirect was already sent. Never surfaced to clients.
	VisitLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linksight",
		Name:      "visit_log_failures_total",
		Help:      "Number of fire-and-forget visit log writes that failed.",
	})

	// ClickPublishFailures counts best-effort broker publishes that failed.
	ClickPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "linksight",
		Name:      "click_publish_failures_total",
		Help:      "Number of click-event broker publishes that failed.",
	})

	// CollaboratorErrors counts failed calls to the analytics/AI service,
	// labeled by operation.
	CollaboratorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linksight",
		Name:      "collaborator_errors_total",
		Help:      "Number of failed analytics/AI collaborator calls.",
	}, []string{"operation"})
)
