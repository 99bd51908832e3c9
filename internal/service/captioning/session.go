// Package captioning runs a caption timeline for one recognition session.
//
// A Session receives recognizer callbacks, feeds them through the caption
// pipeline and hands every emitted cue to its Sink in emission order.
package captioning

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/observability/metrics"
	"ai-speech-captioning-service/internal/service/caption"
)

// Cue is an emitted caption cue with the session and utterance it belongs to.
type Cue struct {
	caption.Cue
	SessionId   string
	UtteranceId string
}

// Sink receives cues in the order the session emits them.
// WriteCue is called with the session lock held and must not call back into the session.
type Sink interface {
	WriteCue(cue Cue) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(cue Cue) error

// WriteCue calls f(cue).
func (f SinkFunc) WriteCue(cue Cue) error {
	return f(cue)
}

// Report summarizes a session once it has ended.
type Report struct {
	SessionId   string
	State       State
	Recognizing int
	Recognized  int
	Emitted     int
	Suppressed  int
	// EndTicks is the end of the last emitted cue.
	EndTicks int64
}

// Session implements stt.Callback and owns the timeline of one recognition session.
//
// One mutex guards the timeline, the lifecycle and every sink write, so cues
// reach the sink in the order they were emitted even if callbacks race.
type Session struct {
	opts    caption.Options
	engine  caption.Engine
	sink    Sink
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	lifecycle *Lifecycle
	timeline  caption.TimelineState
	report    Report
	sinkErr   error
	err       error
	done      chan struct{}
}

// NewSession validates opts and creates an active session.
func NewSession(sessionId, tenantId string, opts caption.Options, sink Sink) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = SinkFunc(func(Cue) error { return nil })
	}
	return &Session{
		opts:      opts,
		engine:    opts.Engine(),
		sink:      sink,
		logger:    logging.WithSession(sessionId, tenantId),
		metrics:   metrics.DefaultMetrics,
		lifecycle: NewLifecycle(sessionId),
		report:    Report{SessionId: sessionId},
		done:      make(chan struct{}),
	}, nil
}

// Id returns the session ID.
func (s *Session) Id() string {
	return s.lifecycle.SessionId()
}

// Options returns the caption options the session was created with.
func (s *Session) Options() caption.Options {
	return s.opts
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// UtteranceId returns the ID of the utterance currently being recognized.
func (s *Session) UtteranceId() string {
	return s.lifecycle.UtteranceId()
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// --- stt.Callback implementation ---

// OnRecognizing handles an in-progress result. Only real-time sessions emit
// cues for it.
func (s *Session) OnRecognizing(result models.RecognitionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.Accept(); err != nil {
		s.logger.Debug().Err(err).Str("text", result.Text).Msg("Recognizing result ignored")
		return
	}
	s.report.Recognizing++
	s.metrics.RecordRecognizing()

	chunks := caption.AssignTimes(s.opts.Split(result.Text), result.OffsetTicks, result.DurationTicks)
	var (
		cues    []caption.Cue
		outcome caption.Outcome
	)
	s.timeline, cues, outcome = s.engine.Recognizing(s.timeline, chunks)
	s.emit(s.lifecycle.UtteranceId(), result.Language, cues, outcome)
}

// OnRecognized handles a final result and closes the current utterance.
func (s *Session) OnRecognized(result models.RecognitionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lifecycle.Accept(); err != nil {
		s.logger.Debug().Err(err).Str("text", result.Text).Msg("Recognized result ignored")
		return
	}
	s.report.Recognized++
	s.metrics.RecordRecognized()

	chunks := caption.AssignTimes(s.opts.Split(result.Text), result.OffsetTicks, result.DurationTicks)
	var (
		cues    []caption.Cue
		outcome caption.Outcome
	)
	s.timeline, cues, outcome = s.engine.Recognized(s.timeline, chunks)
	utteranceId := s.lifecycle.CloseUtterance()
	s.emit(utteranceId, result.Language, cues, outcome)

	s.logger.Debug().
		Str("utteranceId", utteranceId).
		Int("cues", outcome.Emitted).
		Int("suppressed", len(outcome.Suppressed)).
		Msg("Utterance finalized")
}

// OnCanceled ends the session with a CancellationError. Cues already emitted
// stay emitted. Nothing is retried.
func (s *Session) OnCanceled(err error) {
	s.cancel(err, cancelReason(err))
}

// Cancel aborts the session from the caller's side, e.g. when a stream
// limit is exceeded. It behaves like a recognizer cancellation.
func (s *Session) Cancel(reason error) {
	s.cancel(reason, "caller")
}

func (s *Session) cancel(err error, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.Cancel() {
		s.logger.Debug().Err(err).Msg("Cancellation ignored, session already ended")
		return
	}
	s.err = &CancellationError{Err: err}
	s.metrics.RecordSessionCanceled(reason)
	s.logger.Warn().
		Err(err).
		Str("utteranceId", s.lifecycle.UtteranceId()).
		Int("cues", s.report.Emitted).
		Msg("Captioning session canceled")
	s.finish()
}

// OnSessionStopped ends the session normally.
func (s *Session) OnSessionStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.Stop() {
		s.logger.Debug().Msg("Stop ignored, session already ended")
		return
	}
	s.logger.Info().
		Int("results", s.report.Recognizing+s.report.Recognized).
		Int("cues", s.report.Emitted).
		Int("suppressed", s.report.Suppressed).
		Msg("Captioning session stopped")
	s.finish()
}

// Wait blocks until the session ends or ctx is done.
//
// A canceled session returns a *CancellationError. Otherwise the first sink
// failure, if any, is returned wrapped.
func (s *Session) Wait(ctx context.Context) (Report, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return s.Report(), ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.report, s.err
	}
	if s.sinkErr != nil {
		return s.report, fmt.Errorf("write cue: %w", s.sinkErr)
	}
	return s.report, nil
}

// Report returns a snapshot of the session counters.
func (s *Session) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.report
	r.State = s.lifecycle.State()
	return r
}

// emit hands cues to the sink and records the outcome. Caller holds mu.
func (s *Session) emit(utteranceId, language string, cues []caption.Cue, outcome caption.Outcome) {
	mode := s.opts.Mode.String()
	s.metrics.RecordCues(mode, len(cues), len(outcome.Suppressed))
	s.report.Suppressed += len(outcome.Suppressed)

	for _, c := range outcome.Suppressed {
		s.logger.Trace().
			Str("utteranceId", utteranceId).
			Str("text", c.Text).
			Int64("beginTicks", c.BeginTicks).
			Int64("endTicks", c.EndTicks).
			Msg("Cue suppressed, range collapsed")
	}

	for _, c := range cues {
		c.Language = language
		s.report.Emitted++
		s.report.EndTicks = c.EndTicks
		err := s.sink.WriteCue(Cue{Cue: c, SessionId: s.lifecycle.SessionId(), UtteranceId: utteranceId})
		if err != nil {
			s.metrics.RecordSinkError()
			s.logger.Error().Err(err).Int("sequence", c.Sequence).Msg("Failed to write cue")
			if s.sinkErr == nil {
				s.sinkErr = err
			}
		}
	}
}

// finish closes done. Caller holds mu.
func (s *Session) finish() {
	s.report.State = s.lifecycle.State()
	close(s.done)
}

func cancelReason(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	default:
		return "recognizer"
	}
}
