// Package audio provides the audio stream handler that couples an STT adapter
// to a captioning session and the transcript publisher.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/observability/metrics"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/captioning"
	"ai-speech-captioning-service/internal/service/stt"
)

// ErrLimitExceeded is wrapped by the error that cancels a session over its limits.
var ErrLimitExceeded = errors.New("stream limit exceeded")

// StreamLimits defines safety guardrails for a caption stream.
// These prevent unbounded resource usage and ensure backpressure.
type StreamLimits struct {
	MaxAudioBytes int64         // Max audio per stream
	MaxDuration   time.Duration // Max wall-clock stream duration
	MaxPartials   int           // Max in-progress results per utterance
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() StreamLimits {
	return StreamLimits{
		MaxAudioBytes: 5 * 1024 * 1024, // 5MB (~327 seconds at 8kHz 16-bit mono)
		MaxDuration:   5 * time.Minute,
		MaxPartials:   500,
	}
}

// TranscriptPublisher publishes final transcripts.
type TranscriptPublisher interface {
	PublishTranscript(ctx context.Context, key string, event any) error
}

// Config identifies the stream a Handler serves.
type Config struct {
	TenantId string
	Provider string
	Limits   StreamLimits
}

// Handler manages an audio captioning stream.
// It implements stt.Callback, enforces the stream limits, publishes final
// transcripts and forwards every event to the captioning session.
type Handler struct {
	adapter   stt.Adapter
	session   *captioning.Session
	publisher TranscriptPublisher
	cfg       Config
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	mu             sync.Mutex
	startTime      time.Time
	audioBytes     int64
	partialCount   int
	partialsCapped bool
}

// NewHandler creates a handler with default limits. publisher may be nil.
func NewHandler(adapter stt.Adapter, session *captioning.Session, publisher TranscriptPublisher, tenantId string) *Handler {
	return NewHandlerWithConfig(adapter, session, publisher, Config{TenantId: tenantId, Limits: DefaultLimits()})
}

// NewHandlerWithConfig creates a handler with custom limits.
func NewHandlerWithConfig(adapter stt.Adapter, session *captioning.Session, publisher TranscriptPublisher, cfg Config) *Handler {
	return &Handler{
		adapter:   adapter,
		session:   session,
		publisher: publisher,
		cfg:       cfg,
		logger:    logging.WithStream(session.Id(), cfg.TenantId, cfg.Provider, session.Options().Mode.String()),
		metrics:   metrics.DefaultMetrics,
		startTime: time.Now(),
	}
}

// Session returns the captioning session the handler feeds.
func (h *Handler) Session() *captioning.Session {
	return h.session
}

// Start begins the STT session with this handler as the callback receiver.
func (h *Handler) Start(ctx context.Context) error {
	h.mu.Lock()
	h.startTime = time.Now()
	h.mu.Unlock()
	return h.adapter.Start(ctx, h)
}

// SendAudio forwards audio bytes to the STT adapter.
// Exceeding a limit cancels the session and returns an error wrapping ErrLimitExceeded.
func (h *Handler) SendAudio(ctx context.Context, audio []byte) error {
	h.mu.Lock()
	h.audioBytes += int64(len(audio))
	currentBytes := h.audioBytes
	elapsed := time.Since(h.startTime)
	h.mu.Unlock()

	h.metrics.RecordAudioReceived(len(audio))

	if h.cfg.Limits.MaxAudioBytes > 0 && currentBytes > h.cfg.Limits.MaxAudioBytes {
		return h.exceeded("audio_bytes", fmt.Errorf("%w: max audio bytes %d > %d", ErrLimitExceeded, currentBytes, h.cfg.Limits.MaxAudioBytes))
	}
	if h.cfg.Limits.MaxDuration > 0 && elapsed > h.cfg.Limits.MaxDuration {
		return h.exceeded("duration", fmt.Errorf("%w: max duration %v > %v", ErrLimitExceeded, elapsed.Round(time.Millisecond), h.cfg.Limits.MaxDuration))
	}

	return h.adapter.SendAudio(ctx, audio)
}

// Close signals end of audio. The session ends once the recognizer has
// delivered its remaining results.
func (h *Handler) Close() error {
	return h.adapter.Close()
}

// Wait blocks until the session ends.
func (h *Handler) Wait(ctx context.Context) (captioning.Report, error) {
	return h.session.Wait(ctx)
}

// StreamMetrics holds current stream usage for observability.
type StreamMetrics struct {
	AudioBytes   int64
	PartialCount int
	Duration     time.Duration
}

// GetStreamMetrics returns current stream metrics.
func (h *Handler) GetStreamMetrics() StreamMetrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return StreamMetrics{
		AudioBytes:   h.audioBytes,
		PartialCount: h.partialCount,
		Duration:     time.Since(h.startTime),
	}
}

func (h *Handler) exceeded(limitType string, err error) error {
	h.metrics.RecordLimitExceeded(limitType)
	h.logger.Warn().Err(err).Str("limit", limitType).Msg("Stream limit exceeded, canceling session")
	h.session.Cancel(err)
	if cerr := h.adapter.Close(); cerr != nil {
		h.logger.Warn().Err(cerr).Msg("Failed to close STT session")
	}
	return err
}

// --- stt.Callback implementation ---

// OnRecognizing forwards an in-progress result unless the utterance has
// used up its partial budget. Once capped, the utterance stays silent until
// its final result.
func (h *Handler) OnRecognizing(result models.RecognitionResult) {
	h.mu.Lock()
	h.partialCount++
	count := h.partialCount
	capped := h.partialsCapped
	if h.cfg.Limits.MaxPartials > 0 && count > h.cfg.Limits.MaxPartials {
		h.partialsCapped = true
	}
	h.mu.Unlock()

	if h.cfg.Limits.MaxPartials > 0 && count > h.cfg.Limits.MaxPartials {
		if !capped {
			h.metrics.RecordLimitExceeded("partials")
			h.logger.Warn().
				Int("partials", count).
				Str("utteranceId", h.session.UtteranceId()).
				Msg("Max partials exceeded, ignoring partials until the final result")
		}
		return
	}
	h.session.OnRecognizing(result)
}

// OnRecognized publishes the final transcript and forwards the result.
func (h *Handler) OnRecognized(result models.RecognitionResult) {
	h.mu.Lock()
	h.partialCount = 0
	h.partialsCapped = false
	h.mu.Unlock()

	utteranceId := h.session.UtteranceId()
	h.session.OnRecognized(result)
	h.publishTranscript(utteranceId, result)
}

// OnCanceled records the recognizer failure and cancels the session.
func (h *Handler) OnCanceled(err error) {
	errorType := "canceled"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		errorType = "context"
	}
	h.metrics.RecordSTTError(h.cfg.Provider, errorType)
	h.session.OnCanceled(err)
}

// OnSessionStopped ends the session normally.
func (h *Handler) OnSessionStopped() {
	h.session.OnSessionStopped()
}

func (h *Handler) publishTranscript(utteranceId string, result models.RecognitionResult) {
	if h.publisher == nil {
		return
	}
	ev := models.TranscriptFinal{
		EventType:     models.EventTypeTranscript,
		InteractionID: h.session.Id(),
		TenantID:      h.cfg.TenantId,
		Timestamp:     time.Now().UnixMilli(),
		UtteranceID:   utteranceId,
		Text:          result.Text,
		Language:      result.Language,
		AudioOffsetMs: result.OffsetTicks / caption.TicksPerMillisecond,
		DurationMs:    result.DurationTicks / caption.TicksPerMillisecond,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.publisher.PublishTranscript(ctx, h.session.Id(), ev); err != nil {
		logger := logging.WithUtterance(h.session.Id(), h.cfg.TenantId, utteranceId)
		logger.Error().
			Err(err).
			Str("provider", h.cfg.Provider).
			Msg("Failed to publish final transcript")
	}
}
