package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture metrics
	framesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcriber_frames_total",
		Help: "Total number of audio frames captured",
	})

	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcriber_frames_dropped_total",
		Help: "Frames dropped because the bounded frame queue was full",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriber_queue_depth",
		Help: "Frames waiting for the consumer",
	})

	// Segmentation metrics
	segmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcriber_segments_total",
		Help: "Total number of finalized audio segments",
	})

	segmentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcriber_segment_duration_seconds",
		Help:    "Duration of finalized audio segments",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
	})

	// STT metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_transcription_requests_total",
		Help: "Total number of speech recognition calls",
	}, []string{"status"})

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcriber_transcription_latency_seconds",
		Help:    "Speech recognition latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Transcript metrics
	transcriptLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_transcript_lines_total",
		Help: "Transcript line events",
	}, []string{"event"}) // event: "opened", "updated", "finalized"

	rollingBufferWords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcriber_rolling_buffer_words",
		Help: "Words currently held in the rolling buffer",
	})

	merges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_merges_total",
		Help: "Rolling buffer merges",
	}, []string{"status"})

	// Translation / TTS metrics
	translationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_translation_requests_total",
		Help: "Total number of translation requests",
	}, []string{"status"})

	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_synthesis_requests_total",
		Help: "Total number of speech synthesis requests",
	}, []string{"status"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcriber_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transcriber_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordFrame counts a captured frame.
func RecordFrame() {
	framesTotal.Inc()
}

// RecordFrameDropped counts a frame rejected by a bounded queue.
func RecordFrameDropped() {
	framesDropped.Inc()
}

// SetQueueDepth publishes the current frame queue length.
func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
}

// RecordSegment records a finalized segment and its duration.
func RecordSegment(duration time.Duration) {
	segmentsTotal.Inc()
	segmentDuration.Observe(duration.Seconds())
}

// RecordTranscription records the outcome and latency of a recognition call.
func RecordTranscription(success bool, latency time.Duration) {
	transcriptionRequests.WithLabelValues(status(success)).Inc()
	transcriptionLatency.Observe(latency.Seconds())
}

// RecordLineEvent counts a transcript line event.
func RecordLineEvent(event string) {
	transcriptLines.WithLabelValues(event).Inc()
}

// SetRollingBufferWords publishes the rolling buffer length.
func SetRollingBufferWords(n int) {
	rollingBufferWords.Set(float64(n))
}

// RecordMerge records the outcome of a rolling buffer merge.
func RecordMerge(success bool) {
	merges.WithLabelValues(status(success)).Inc()
}

// RecordTranslation records the outcome of a translation call.
func RecordTranslation(success bool) {
	translationRequests.WithLabelValues(status(success)).Inc()
}

// RecordSynthesis records the outcome of a synthesis call.
func RecordSynthesis(success bool) {
	synthesisRequests.WithLabelValues(status(success)).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
