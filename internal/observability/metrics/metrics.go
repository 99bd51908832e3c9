// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ai_speech_captioning"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Stream metrics
	StreamsTotal   prometheus.Counter
	StreamsActive  prometheus.Gauge
	StreamsSuccess prometheus.Counter
	StreamsFailed  prometheus.Counter
	StreamDuration prometheus.Histogram

	// Session metrics
	SessionsCanceled *prometheus.CounterVec
	Utterances       prometheus.Counter

	// Recognition result metrics
	ResultsRecognizing prometheus.Counter
	ResultsRecognized  prometheus.Counter

	// Cue metrics
	CuesEmitted    *prometheus.CounterVec
	CuesSuppressed *prometheus.CounterVec
	CueSinkErrors  prometheus.Counter

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioFramesReceived prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec

	// STT metrics
	STTErrors *prometheus.CounterVec

	// Backpressure metrics
	StreamLimitExceeded *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics with reg. Tests pass a fresh registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Stream metrics
		StreamsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_total",
			Help:      "Total number of caption streams started",
		}),
		StreamsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Number of currently active caption streams",
		}),
		StreamsSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_success_total",
			Help:      "Total number of successfully completed streams",
		}),
		StreamsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_failed_total",
			Help:      "Total number of failed streams",
		}),
		StreamDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stream_duration_seconds",
			Help:      "Duration of caption streams in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		// Session metrics
		SessionsCanceled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_canceled_total",
			Help:      "Total number of captioning sessions canceled",
		}, []string{"reason"}),
		Utterances: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Total number of utterances finalized",
		}),

		// Recognition result metrics
		ResultsRecognizing: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_recognizing_total",
			Help:      "Total number of in-progress recognition results received",
		}),
		ResultsRecognized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_recognized_total",
			Help:      "Total number of final recognition results received",
		}),

		// Cue metrics
		CuesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_emitted_total",
			Help:      "Total number of caption cues emitted",
		}, []string{"mode"}),
		CuesSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_suppressed_total",
			Help:      "Total number of caption cues suppressed because their range collapsed",
		}, []string{"mode"}),
		CueSinkErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cue_sink_errors_total",
			Help:      "Total number of cue sink write failures",
		}),

		// Audio metrics
		AudioBytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received",
		}),
		AudioFramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_frames_received_total",
			Help:      "Total audio frames received",
		}),

		// Kafka publish metrics
		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),

		// STT metrics
		STTErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// Backpressure metrics
		StreamLimitExceeded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_limit_exceeded_total",
			Help:      "Total number of times stream limits were exceeded",
		}, []string{"limit_type"}),
	}
}

// RecordStreamStart records a new stream starting.
func (m *Metrics) RecordStreamStart() {
	m.StreamsTotal.Inc()
	m.StreamsActive.Inc()
}

// RecordStreamEnd records a stream ending.
func (m *Metrics) RecordStreamEnd(success bool, durationSeconds float64) {
	m.StreamsActive.Dec()
	m.StreamDuration.Observe(durationSeconds)
	if success {
		m.StreamsSuccess.Inc()
	} else {
		m.StreamsFailed.Inc()
	}
}

// RecordRecognizing records an in-progress result received.
func (m *Metrics) RecordRecognizing() {
	m.ResultsRecognizing.Inc()
}

// RecordRecognized records a final result received.
func (m *Metrics) RecordRecognized() {
	m.ResultsRecognized.Inc()
	m.Utterances.Inc()
}

// RecordCues records the outcome of one engine call.
func (m *Metrics) RecordCues(mode string, emitted, suppressed int) {
	if emitted > 0 {
		m.CuesEmitted.WithLabelValues(mode).Add(float64(emitted))
	}
	if suppressed > 0 {
		m.CuesSuppressed.WithLabelValues(mode).Add(float64(suppressed))
	}
}

// RecordSinkError records a cue that a sink failed to accept.
func (m *Metrics) RecordSinkError() {
	m.CueSinkErrors.Inc()
}

// RecordSessionCanceled records a session ending through cancellation.
func (m *Metrics) RecordSessionCanceled(reason string) {
	m.SessionsCanceled.WithLabelValues(reason).Inc()
}

// RecordAudioReceived records audio bytes and frames received.
func (m *Metrics) RecordAudioReceived(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioFramesReceived.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordLimitExceeded records when a stream limit is exceeded.
func (m *Metrics) RecordLimitExceeded(limitType string) {
	m.StreamLimitExceeded.WithLabelValues(limitType).Inc()
}
