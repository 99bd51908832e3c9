// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/durationpb"

	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/stt"
)

// Config holds Google STT configuration.
type Config struct {
	LanguageCode   string
	SampleRateHz   int32
	InterimResults bool
	AudioEncoding  string
	// ProfanityFilter masks profanities with asterisks.
	ProfanityFilter bool
	// Phrases are hints that bias recognition toward domain vocabulary.
	Phrases []string
	// MinStability drops interim results the provider considers less stable.
	MinStability float32
	// TagLanguage copies the detected language onto every result.
	TagLanguage bool
}

// DefaultConfig returns the default Google STT configuration.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "en-US",
		SampleRateHz:   8000,
		InterimResults: true,
		AudioEncoding:  "LINEAR16",
	}
}

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text.
type Adapter struct {
	client *speech.Client
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	cb     stt.Callback

	// utteranceStart is the end of the previous final result; only the receive loop touches it.
	utteranceStart int64
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client: c,
		cfg:    cfg,
		logger: logging.WithComponent("stt-google"),
	}, nil
}

// Start begins a streaming recognition session, sends the initial config and
// starts receiving results.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.stream = stream
	a.cb = cb
	a.mu.Unlock()

	// Send streaming config as the first message
	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: streamingConfig(a.cfg),
		},
	}); err != nil {
		return err
	}

	go a.listen()
	return nil
}

// SendAudio sends audio bytes to Google Speech-to-Text.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	stream := a.stream
	a.mu.Unlock()
	if stream == nil {
		return errors.New("google stt: session not started")
	}
	return stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close half-closes the stream. Results still in flight are delivered by the
// receive loop, which ends the session on io.EOF.
func (a *Adapter) Close() error {
	a.mu.Lock()
	stream := a.stream
	a.mu.Unlock()
	if stream != nil {
		return stream.CloseSend()
	}
	return a.client.Close()
}

// listen receives responses from Google and invokes callbacks in order.
func (a *Adapter) listen() {
	if a.client != nil {
		defer a.client.Close()
	}

	for {
		resp, err := a.stream.Recv()
		if err == io.EOF {
			a.cb.OnSessionStopped()
			return
		}
		if err != nil {
			a.logger.Error().Err(err).Msg("Streaming recognition failed")
			a.cb.OnCanceled(err)
			return
		}
		if st := resp.GetError(); st != nil && st.GetCode() != 0 {
			a.cb.OnCanceled(errors.New("google stt: " + st.GetMessage()))
			return
		}

		for _, result := range a.results(resp.Results) {
			if result.IsFinal {
				a.utteranceStart = result.EndTicks()
				a.cb.OnRecognized(result)
			} else {
				a.cb.OnRecognizing(result)
			}
		}
	}
}

// results maps the results of one response. Final results pass through one by
// one. Interim results are consecutive pieces of one hypothesis, a stable
// prefix followed by less stable tails, so they are joined into a single
// in-progress result ending where the last piece ends. A piece below
// MinStability drops itself and every piece after it.
func (a *Adapter) results(rs []*speechpb.StreamingRecognitionResult) []models.RecognitionResult {
	var (
		out       []models.RecognitionResult
		partial   models.RecognitionResult
		text      strings.Builder
		pieces    int
		truncated bool
	)
	start := a.utteranceStart
	for _, r := range rs {
		if r.GetIsFinal() {
			if result, ok := resultFromResponse(r, start, a.cfg); ok {
				out = append(out, result)
				start = result.EndTicks()
			}
			continue
		}
		if truncated {
			continue
		}
		piece, ok := resultFromResponse(r, start, a.cfg)
		if !ok {
			truncated = true
			continue
		}
		if pieces == 0 {
			partial = piece
		}
		partial.DurationTicks = piece.EndTicks() - partial.OffsetTicks
		text.WriteString(piece.Text)
		pieces++
	}
	if pieces > 0 {
		partial.Text = text.String()
		out = append(out, partial)
	}
	return out
}

// resultFromResponse maps a streaming result onto a RecognitionResult.
// Google reports only where a result ends, so the utterance is taken to start
// where the previous final result ended.
func resultFromResponse(r *speechpb.StreamingRecognitionResult, utteranceStart int64, cfg Config) (models.RecognitionResult, bool) {
	if len(r.GetAlternatives()) == 0 {
		return models.RecognitionResult{}, false
	}
	if !r.GetIsFinal() && cfg.MinStability > 0 && r.GetStability() < cfg.MinStability {
		return models.RecognitionResult{}, false
	}

	end := ticksFromDuration(r.GetResultEndTime())
	duration := end - utteranceStart
	if duration < 0 {
		duration = 0
	}

	result := models.RecognitionResult{
		Text:          r.GetAlternatives()[0].GetTranscript(),
		OffsetTicks:   utteranceStart,
		DurationTicks: duration,
		IsFinal:       r.GetIsFinal(),
	}
	if cfg.TagLanguage {
		result.Language = r.GetLanguageCode()
		if result.Language == "" {
			result.Language = cfg.LanguageCode
		}
	}
	return result, true
}

func ticksFromDuration(d *durationpb.Duration) int64 {
	if d == nil {
		return 0
	}
	return caption.DurationToTicks(d.AsDuration())
}

func streamingConfig(cfg Config) *speechpb.StreamingRecognitionConfig {
	rc := &speechpb.RecognitionConfig{
		Encoding:        parseAudioEncoding(cfg.AudioEncoding),
		SampleRateHertz: cfg.SampleRateHz,
		LanguageCode:    cfg.LanguageCode,
		ProfanityFilter: cfg.ProfanityFilter,
	}
	if len(cfg.Phrases) > 0 {
		rc.SpeechContexts = []*speechpb.SpeechContext{{Phrases: cfg.Phrases}}
	}
	return &speechpb.StreamingRecognitionConfig{
		Config:         rc,
		InterimResults: cfg.InterimResults,
	}
}

// parseAudioEncoding converts string encoding to Google's enum.
// Unknown values fall back to LINEAR16.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
