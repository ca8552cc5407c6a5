package consensus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cadence"

// Metrics counts what the node did in each cycle.
type Metrics struct {
	Phases          *prometheus.CounterVec
	Abstentions     *prometheus.CounterVec
	Candidates      prometheus.Counter
	Favourites      prometheus.Counter
	Published       prometheus.Counter
	PublishFailures prometheus.Counter
	Partial         prometheus.Counter
	Confirmed       prometheus.Counter
	ChainRejections prometheus.Counter
}

// NewMetrics creates the consensus metrics and registers them with reg, if
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phases_total",
			Help:      "Phase transitions handled.",
		}, []string{"phase", "status"}),
		Abstentions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "abstentions_total",
			Help:      "Producing phases in which this node took no action.",
		}, []string{"phase"}),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_broadcast_total",
			Help:      "Candidates built and broadcast.",
		}),
		Favourites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favourites_broadcast_total",
			Help:      "Favourites broadcast.",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deltas_published_total",
			Help:      "Elected deltas published to the DFS.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Failed attempts to publish an elected delta.",
		}),
		Partial: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_announcements_total",
			Help:      "Published deltas whose address did not reach every producer.",
		}),
		Confirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deltas_confirmed_total",
			Help:      "Deltas accepted on the local hash chain.",
		}),
		ChainRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chain_rejections_total",
			Help:      "Announced deltas that did not extend the local chain tip.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Phases,
			m.Abstentions,
			m.Candidates,
			m.Favourites,
			m.Published,
			m.PublishFailures,
			m.Partial,
			m.Confirmed,
			m.ChainRejections,
		)
	}

	return m
}
