// Package metrics holds the Prometheus collectors for the sync layer.
//
// Metrics:
//   - todonotes_subscriptions_active{collection}
//   - todonotes_snapshot_events_total{collection}
//   - todonotes_mutation_failures_total{collection,op,kind}
//   - todonotes_session_transitions_total{from,to}
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "todonotes"

var (
	SubscriptionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Number of open live-query subscriptions",
		},
		[]string{"collection"},
	)

	SnapshotEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_events_total",
			Help:      "Total number of snapshots delivered to subscribers",
		},
		[]string{"collection"},
	)

	MutationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_failures_total",
			Help:      "Total number of failed create, update and delete calls",
		},
		[]string{"collection", "op", "kind"}, // kind: "network", "permission", "not_found", "unknown"
	)

	SessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Total number of identity session state changes",
		},
		[]string{"from", "to"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
