// Package metrics exposes the Prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelationshipOperations counts friend relationship operations by outcome.
	RelationshipOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secretfriends",
		Name:      "relationship_operations_total",
		Help:      "Friend relationship operations partitioned by operation and outcome.",
	}, []string{"operation", "outcome"})

	// ProfileLookupFailures counts secret message lookups that degraded a friends view entry.
	ProfileLookupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "secretfriends",
		Name:      "roster_profile_lookup_failures_total",
		Help:      "Secret message lookups that failed while building a friends view.",
	})

	// ProfileCacheResults counts profile cache lookups by result (hit, miss, error).
	ProfileCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "secretfriends",
		Name:      "profile_cache_results_total",
		Help:      "Profile cache lookups partitioned by result.",
	}, []string{"result"})

	// HTTPRequestDuration tracks request latency by method and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "secretfriends",
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})
)
