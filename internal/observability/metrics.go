package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tofsink",
			Subsystem: "decode",
			Name:      "frames_total",
			Help:      "Frames decoded from the wire.",
		},
	)
	headersSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tofsink",
			Subsystem: "decode",
			Name:      "headers_skipped_total",
			Help:      "Header lines discarded as malformed or incomplete.",
		},
	)
	bufferResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tofsink",
			Subsystem: "decode",
			Name:      "buffer_resets_total",
			Help:      "Reassembly buffer resets after filling without a newline.",
		},
	)
	bytesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tofsink",
			Subsystem: "decode",
			Name:      "bytes_total",
			Help:      "Bytes received from the digitizer connection.",
		},
	)
	framesMerged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tofsink",
			Subsystem: "histogram",
			Name:      "frames_merged_total",
			Help:      "Frames merged into the running sum.",
		},
	)
	overflowClamps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tofsink",
			Subsystem: "histogram",
			Name:      "overflow_clamps_total",
			Help:      "Bin additions clamped at the 64-bit maximum.",
		},
	)
	persistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tofsink",
			Subsystem: "persist",
			Name:      "failures_total",
			Help:      "Snapshot writes that failed to open or write the output file.",
		},
	)
	persistDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tofsink",
			Subsystem: "persist",
			Name:      "write_duration_seconds",
			Help:      "Snapshot write duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesDecoded, headersSkipped, bufferResets, bytesReceived,
			framesMerged, overflowClamps, persistFailures, persistDuration,
		)
	})
}

func RecordFrameDecoded() {
	RegisterMetrics()
	framesDecoded.Inc()
}

func RecordHeaderSkipped() {
	RegisterMetrics()
	headersSkipped.Inc()
}

func RecordBufferReset() {
	RegisterMetrics()
	bufferResets.Inc()
}

func RecordBytesReceived(n int) {
	RegisterMetrics()
	bytesReceived.Add(float64(n))
}

func RecordFrameMerged(clampedBins int) {
	RegisterMetrics()
	framesMerged.Inc()
	if clampedBins > 0 {
		overflowClamps.Add(float64(clampedBins))
	}
}

// RecordPersist tracks one snapshot write. Failed writes count toward the
// duration histogram too; they still spent the time.
func RecordPersist(duration time.Duration, err error) {
	RegisterMetrics()
	persistDuration.Observe(duration.Seconds())
	if err != nil {
		persistFailures.Inc()
	}
}
