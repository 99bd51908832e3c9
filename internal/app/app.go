// Package app wires configuration, recognizers and publishers into the
// captioning service.
package app

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-speech-captioning-service/internal/config"
	"ai-speech-captioning-service/internal/events"
	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/schema"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/captioning"
	"ai-speech-captioning-service/internal/service/stt"
	"ai-speech-captioning-service/internal/service/stt/google"
	"ai-speech-captioning-service/internal/service/stt/mock"
	"ai-speech-captioning-service/internal/service/stt/replay"
	"ai-speech-captioning-service/internal/sink"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	publisher events.CuePublisher
	validator *schema.Validator
	ready     atomic.Bool
}

// New constructs a new Application from the provided configuration.
// publisher may be nil.
func New(cfg *config.Configuration, publisher events.CuePublisher) *Application {
	a := &Application{
		Cfg:       cfg,
		Logger:    logging.WithComponent("application"),
		publisher: publisher,
		validator: schema.New(),
	}

	a.Logger.Info().
		Str("sttProvider", cfg.STT.Provider).
		Str("captionMode", cfg.Caption.Mode).
		Msg("AI Speech Captioning service application created")
	return a
}

// NewRecognizer creates the configured STT adapter for one stream.
func (a *Application) NewRecognizer(ctx context.Context) (stt.Adapter, error) {
	s := a.Cfg.STT
	switch s.Provider {
	case "google":
		return google.New(ctx, google.Config{
			LanguageCode:    s.LanguageCode,
			SampleRateHz:    int32(s.SampleRateHz),
			InterimResults:  s.InterimResults,
			AudioEncoding:   s.AudioEncoding,
			ProfanityFilter: s.ProfanityFilter,
			Phrases:         s.Phrases,
			MinStability:    float32(s.MinStability),
			TagLanguage:     s.TagLanguage,
		})
	case "replay":
		records, err := replay.Open(s.ReplayFile)
		if err != nil {
			return nil, fmt.Errorf("load replay: %w", err)
		}
		return replay.New(replay.Config{Pace: true}, records), nil
	case "mock", "":
		mc := mock.DefaultConfig()
		mc.SampleRateHz = s.SampleRateHz
		return mock.NewWithUtterances(mc, mock.DefaultUtterances), nil
	default:
		return nil, &caption.ConfigurationError{Field: "STT_PROVIDER", Reason: "must be mock, google or replay"}
	}
}

// Caption runs a batch of recognition results through a fresh session and
// writes the caption document to w. Invalid results are rejected before any
// output is written.
func (a *Application) Caption(ctx context.Context, tenantId string, opts caption.Options, results []models.RecognitionResult, w io.Writer) (captioning.Report, error) {
	if err := a.validator.ValidateBatch(results); err != nil {
		return captioning.Report{}, err
	}

	sessionId := uuid.NewString()
	out := sink.NewWriter(w, opts.SubRip)
	var target captioning.Sink = out
	if a.publisher != nil {
		target = sink.Multi(out, events.NewCueSink(a.publisher, tenantId, opts.SubRip))
	}

	session, err := captioning.NewSession(sessionId, tenantId, opts, target)
	if err != nil {
		return captioning.Report{}, err
	}
	report, err := captioning.Run(ctx, replay.New(replay.Config{}, replay.FromResults(results)), session)
	if err != nil {
		return report, err
	}
	return report, out.Finish()
}

// Ready reports whether the service accepts traffic.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("AI Speech Captioning service starting")
	return nil
}

// Shutdown stops accepting traffic.
func (a *Application) Shutdown() {
	a.ready.Store(false)
	a.Logger.Info().Msg("AI Speech Captioning service shutting down")
}
