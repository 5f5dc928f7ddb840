package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "arqlink"

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_sent_total",
			Help:      "Frames written to the datagram channel, retransmissions included.",
		},
		[]string{"role", "kind"},
	)
	retransmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "retransmits_total",
			Help:      "Data segments sent again, by trigger.",
		},
		[]string{"reason"},
	)
	framesCorrupt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_corrupt_total",
			Help:      "Inbound frames that failed to parse or verify.",
		},
		[]string{"role"},
	)
	acksMatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "acks_matched_total",
			Help:      "Acknowledgements that released an in-flight segment.",
		},
	)
	duplicates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "duplicate_segments_total",
			Help:      "Data segments received for an already seen sequence.",
		},
	)
	bytesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "bytes_delivered_total",
			Help:      "Payload bytes flushed in order to the output sink.",
		},
	)
	windowSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "window_size",
			Help:      "Current sliding window size.",
		},
	)
	rttEstimate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "rtt_seconds",
			Help:      "Most recent round-trip time estimate.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status endpoint requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status endpoint request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesSent,
			retransmits,
			framesCorrupt,
			acksMatched,
			duplicates,
			bytesDelivered,
			windowSize,
			rttEstimate,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordFrameSent(role, kind string) {
	RegisterMetrics()
	framesSent.WithLabelValues(role, kind).Inc()
}

func RecordRetransmit(reason string, n int) {
	RegisterMetrics()
	retransmits.WithLabelValues(reason).Add(float64(n))
}

func RecordCorruptFrame(role string) {
	RegisterMetrics()
	framesCorrupt.WithLabelValues(role).Inc()
}

func RecordAckMatched(rtt time.Duration, window int) {
	RegisterMetrics()
	acksMatched.Inc()
	rttEstimate.Set(rtt.Seconds())
	windowSize.Set(float64(window))
}

func RecordWindow(window int) {
	RegisterMetrics()
	windowSize.Set(float64(window))
}

func RecordDuplicate() {
	RegisterMetrics()
	duplicates.Inc()
}

func RecordDelivered(n int) {
	RegisterMetrics()
	bytesDelivered.Add(float64(n))
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
