package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventbridge",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventbridge",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	socketRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventbridge",
			Subsystem: "socket",
			Name:      "records_total",
			Help:      "Records written to peer sockets by outcome.",
		},
		[]string{"channel", "record", "status"},
	)
	socketBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventbridge",
			Subsystem: "socket",
			Name:      "bytes_total",
			Help:      "Bytes accepted by peer sockets.",
		},
		[]string{"channel"},
	)
	sdpReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventbridge",
			Subsystem: "fbstream",
			Name:      "sdp_replies_total",
			Help:      "PRINTSDP replies read from the fbstream peer.",
		},
		[]string{"status"},
	)
	sensorQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "eventbridge",
			Subsystem: "sensor",
			Name:      "queue_depth",
			Help:      "Sensor events waiting for the socket writer.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, socketRecords, socketBytes, sdpReplies, sensorQueueDepth)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordSocketWrite counts one record write; written is what the socket took.
func RecordSocketWrite(channel, record, status string, written int) {
	RegisterMetrics()
	socketRecords.WithLabelValues(channel, record, status).Inc()
	if written > 0 {
		socketBytes.WithLabelValues(channel).Add(float64(written))
	}
}

func RecordSDPReply(success bool) {
	RegisterMetrics()
	status := "ok"
	if !success {
		status = "error"
	}
	sdpReplies.WithLabelValues(status).Inc()
}

func SetSensorQueueDepth(n int) {
	RegisterMetrics()
	sensorQueueDepth.Set(float64(n))
}
