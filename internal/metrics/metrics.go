package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors the mixer reports into: graph
// shape, actor throughput, and subscription/broker health.
type Registry struct {
	NodeCount         prometheus.Gauge
	SubscriptionCount prometheus.Gauge
	QueueDepth        prometheus.Gauge

	CommandsProcessed    *prometheus.CounterVec
	UpdatesSent          prometheus.Counter
	SubscriptionsDropped prometheus.Counter
	MissingInputRejected prometheus.Counter
	CycleRejected        prometheus.Counter

	BrokerFramesSent prometheus.Counter
	BrokerFramesRecv prometheus.Counter
	BrokerErrors     prometheus.Counter
}

// NewRegistry creates the mixer's Prometheus collectors.
func NewRegistry() *Registry {
	return &Registry{
		NodeCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dmxmixer_graph_nodes",
			Help: "Number of nodes currently in the scene graph",
		}),
		SubscriptionCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dmxmixer_graph_subscriptions",
			Help: "Number of live subscriptions",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dmxmixer_actor_queue_depth",
			Help: "Number of commands waiting in the actor's queue",
		}),
		CommandsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dmxmixer_actor_commands_processed_total",
			Help: "Total number of commands processed by the graph actor, by kind",
		}, []string{"kind"}),
		UpdatesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dmxmixer_graph_updates_sent_total",
			Help: "Total number of Update messages sent to subscribers",
		}),
		SubscriptionsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dmxmixer_graph_subscriptions_dropped_total",
			Help: "Total number of subscriptions dropped because their channel was full",
		}),
		MissingInputRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dmxmixer_graph_missing_input_rejected_total",
			Help: "Total number of Insert calls rejected for naming a nonexistent upstream",
		}),
		CycleRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dmxmixer_graph_cycle_rejected_total",
			Help: "Total number of Insert calls rejected for closing a dependency cycle",
		}),
		BrokerFramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dmxmixer_broker_frames_sent_total",
			Help: "Total number of DMX frames sent to the broker",
		}),
		BrokerFramesRecv: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dmxmixer_broker_frames_received_total",
			Help: "Total number of DMX frames received from the broker",
		}),
		BrokerErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dmxmixer_broker_errors_total",
			Help: "Total number of broker connection errors",
		}),
	}
}

// SetQueueDepth satisfies internal/actor.Metrics.
func (r *Registry) SetQueueDepth(n int) { r.QueueDepth.Set(float64(n)) }

// IncCommand satisfies internal/actor.Metrics.
func (r *Registry) IncCommand(kind string) { r.CommandsProcessed.WithLabelValues(kind).Inc() }

// Handler returns an HTTP handler exposing Prometheus metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
