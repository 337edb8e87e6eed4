package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	wireBytesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "weerelay",
			Subsystem: "wire",
			Name:      "bytes_read_total",
			Help:      "Total bytes read from the relay transport.",
		},
	)
	framesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weerelay",
			Subsystem: "wire",
			Name:      "frames_decoded_total",
			Help:      "Frames decoded, by compression flag.",
		},
		[]string{"compressed"},
	)
	frameBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "weerelay",
			Subsystem: "wire",
			Name:      "frame_bytes",
			Help:      "Decoded frame size in bytes, before decompression.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		},
	)
	decodeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "weerelay",
			Subsystem: "wire",
			Name:      "decode_failures_total",
			Help:      "Frames rejected as malformed.",
		},
	)
	messagesApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "weerelay",
			Subsystem: "mirror",
			Name:      "messages_applied_total",
			Help:      "Messages routed into the domain mirror, by message id.",
		},
		[]string{"msg_id"},
	)
	reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "weerelay",
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts after an unexpected close.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			wireBytesRead, framesDecoded, frameBytes,
			decodeFailures, messagesApplied, reconnects,
		)
	})
}

func RecordWireBytes(n int) {
	RegisterMetrics()
	wireBytesRead.Add(float64(n))
}

func RecordFrameDecoded(compressed bool, size int) {
	RegisterMetrics()
	framesDecoded.WithLabelValues(strconv.FormatBool(compressed)).Inc()
	frameBytes.Observe(float64(size))
}

func RecordDecodeFailure() {
	RegisterMetrics()
	decodeFailures.Inc()
}

// RecordMessageApplied keeps the label space bounded: event ids already
// start with "_" and request ids are collapsed to one label value.
func RecordMessageApplied(msgID string) {
	RegisterMetrics()
	if msgID == "" {
		msgID = "(none)"
	} else if msgID[0] != '_' {
		msgID = "(request)"
	}
	messagesApplied.WithLabelValues(msgID).Inc()
}

func RecordReconnect() {
	RegisterMetrics()
	reconnects.Inc()
}
