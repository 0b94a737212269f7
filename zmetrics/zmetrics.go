// Package zmetrics exposes Prometheus collectors for the async
// request/reply layer: outbound queue depth, in-flight request count,
// worker utilization, and end-to-end request latency.
package zmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zrf"

// ClientMetrics instruments one rpcclient.Client.
type ClientMetrics struct {
	outboundDepth prometheus.Gauge
	inFlight      prometheus.Gauge
	replyLatency  prometheus.Histogram
}

// NewClientMetrics constructs and registers a ClientMetrics against reg.
// label identifies the client instance (typically its target URI).
func NewClientMetrics(reg prometheus.Registerer, label string) *ClientMetrics {
	m := &ClientMetrics{
		outboundDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "rpcclient",
			Name:        "outbound_queue_depth",
			Help:        "Number of requests queued for transmission but not yet sent.",
			ConstLabels: prometheus.Labels{"target": label},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "rpcclient",
			Name:        "in_flight_requests",
			Help:        "Number of requests sent but not yet replied to.",
			ConstLabels: prometheus.Labels{"target": label},
		}),
		replyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "rpcclient",
			Name:        "reply_latency_seconds",
			Help:        "Time from request enqueue to reply arrival.",
			ConstLabels: prometheus.Labels{"target": label},
			Buckets:     prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.outboundDepth, m.inFlight, m.replyLatency)
	}
	return m
}

// ObserveOutbound records the outbound queue depth and waitlist size
// immediately after a Send.
func (m *ClientMetrics) ObserveOutbound(outboundDepth, waitlistLen int) {
	m.outboundDepth.Set(float64(outboundDepth))
	m.inFlight.Set(float64(waitlistLen))
}

// ObserveReplyLatency records how long a request waited for its reply,
// measured from the moment it entered the waitlist.
func (m *ClientMetrics) ObserveReplyLatency(sentAt time.Time) {
	m.replyLatency.Observe(time.Since(sentAt).Seconds())
}

// ServerMetrics instruments one rpcserver.Server.
type ServerMetrics struct {
	requestQueueDepth prometheus.Gauge
	replyQueueDepth   prometheus.Gauge
	workerBusy        prometheus.Gauge
	requestLatency    prometheus.Histogram
}

// NewServerMetrics constructs and registers a ServerMetrics against reg.
func NewServerMetrics(reg prometheus.Registerer, label string) *ServerMetrics {
	m := &ServerMetrics{
		requestQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "rpcserver",
			Name:        "request_queue_depth",
			Help:        "Number of requests handed to the worker pool but not yet picked up.",
			ConstLabels: prometheus.Labels{"endpoint": label},
		}),
		replyQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "rpcserver",
			Name:        "reply_queue_depth",
			Help:        "Number of replies computed but not yet sent.",
			ConstLabels: prometheus.Labels{"endpoint": label},
		}),
		workerBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "rpcserver",
			Name:        "workers_busy",
			Help:        "Number of worker goroutines currently executing a method.",
			ConstLabels: prometheus.Labels{"endpoint": label},
		}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "rpcserver",
			Name:        "request_latency_seconds",
			Help:        "Time from request dequeue to reply enqueue.",
			ConstLabels: prometheus.Labels{"endpoint": label},
			Buckets:     prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requestQueueDepth, m.replyQueueDepth, m.workerBusy, m.requestLatency)
	}
	return m
}

func (m *ServerMetrics) ObserveQueues(requestDepth, replyDepth int) {
	m.requestQueueDepth.Set(float64(requestDepth))
	m.replyQueueDepth.Set(float64(replyDepth))
}

func (m *ServerMetrics) WorkerStarted() { m.workerBusy.Inc() }
func (m *ServerMetrics) WorkerFinished(start time.Time) {
	m.workerBusy.Dec()
	m.requestLatency.Observe(time.Since(start).Seconds())
}
