// Package metrics exposes Prometheus counters for booking transitions,
// outbound notifications and worker deliveries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeNoOp     = "noop"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder is what the booking core and the worker report to
type Recorder interface {
	JobCreated(jobType string)
	Transition(operation, outcome string)
	NotificationSent(channel, outcome string)
	MessageDelivered(kind, outcome string, latency time.Duration)
}

// Nop discards everything
type Nop struct{}

func (Nop) JobCreated(string)                              {}
func (Nop) Transition(string, string)                      {}
func (Nop) NotificationSent(string, string)                {}
func (Nop) MessageDelivered(string, string, time.Duration) {}

// Collector is the Prometheus-backed Recorder
type Collector struct {
	jobsCreated   *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// NewCollector creates a collector and registers it with reg
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	c := &Collector{
		jobsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_created_total",
			Help:      "Total number of bookings created",
		}, []string{"job_type"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_transitions_total",
			Help:      "Lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Outbound notifications handed to the transport",
		}, []string{"channel", "outcome"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Messages delivered by the worker",
		}, []string{"kind", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_latency_seconds",
			Help:      "Worker delivery latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}

	reg.MustRegister(c.jobsCreated, c.transitions, c.notifications, c.deliveries, c.latency)
	return c
}

func (c *Collector) JobCreated(jobType string) {
	if jobType == "" {
		jobType = "unknown"
	}
	c.jobsCreated.WithLabelValues(jobType).Inc()
}

func (c *Collector) Transition(operation, outcome string) {
	c.transitions.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) NotificationSent(channel, outcome string) {
	c.notifications.WithLabelValues(channel, outcome).Inc()
}

func (c *Collector) MessageDelivered(kind, outcome string, latency time.Duration) {
	c.deliveries.WithLabelValues(kind, outcome).Inc()
	c.latency.WithLabelValues(kind).Observe(latency.Seconds())
}
