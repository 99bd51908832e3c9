// Package mock provides a mock STT adapter for testing without cloud credentials.
// It simulates realistic speech-to-text behavior: partial results that grow one
// word at a time as audio arrives, exactly one final result per utterance, and
// offsets that follow the audio clock.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/stt"
)

// SimulatedUtterance is a mock utterance revealed word by word.
type SimulatedUtterance struct {
	Text     string
	Language string
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{Text: "I want to cancel my subscription because the captions on every video arrive late"},
	{Text: "Yes please go ahead"},
	{Text: "Can you help me with my account settings and the language of the subtitles"},
	{Text: "I've been waiting for over an hour for somebody to pick up the phone"},
	{Text: "Thank you very much"},
}

// Config controls the simulated audio clock.
type Config struct {
	// SampleRateHz of the 16-bit mono PCM the adapter receives.
	SampleRateHz int
	// WordDuration is the audio needed to recognize one more word.
	WordDuration time.Duration
	// Gap is the silence between utterances.
	Gap time.Duration
}

// DefaultConfig returns 8kHz audio, 400ms per word and 300ms between utterances.
func DefaultConfig() Config {
	return Config{
		SampleRateHz: 8000,
		WordDuration: 400 * time.Millisecond,
		Gap:          300 * time.Millisecond,
	}
}

// Adapter implements stt.Adapter with simulated results.
// Events are queued and delivered by a single dispatcher goroutine, so
// callbacks never run concurrently and never reorder.
type Adapter struct {
	cfg        Config
	utterances []SimulatedUtterance

	mu         sync.Mutex
	cb         stt.Callback
	events     chan func(stt.Callback)
	done       chan struct{}
	audioTicks int64 // audio received so far
	current    int   // index into utterances
	revealed   int   // words of the current utterance recognized so far
	offset     int64 // start of the current utterance
	started    bool
	closed     bool
}

// New creates a mock adapter cycling through DefaultUtterances.
func New() *Adapter {
	return NewWithUtterances(DefaultConfig(), DefaultUtterances)
}

// NewWithUtterances creates a mock adapter with a custom script.
func NewWithUtterances(cfg Config, utterances []SimulatedUtterance) *Adapter {
	if cfg.SampleRateHz <= 0 {
		cfg.SampleRateHz = DefaultConfig().SampleRateHz
	}
	if cfg.WordDuration <= 0 {
		cfg.WordDuration = DefaultConfig().WordDuration
	}
	script := make([]SimulatedUtterance, 0, len(utterances))
	for _, u := range utterances {
		if strings.TrimSpace(u.Text) != "" {
			script = append(script, u)
		}
	}
	if len(script) == 0 {
		script = DefaultUtterances
	}
	return &Adapter{
		cfg:        cfg,
		utterances: script,
		events:     make(chan func(stt.Callback), 256),
		done:       make(chan struct{}),
	}
}

// Start begins a mock transcription session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.cb = cb
	a.started = true
	a.mu.Unlock()

	go a.dispatch(cb)
	go func() {
		select {
		case <-ctx.Done():
			a.cancel(ctx.Err())
		case <-a.done:
		}
	}()
	return nil
}

// SendAudio advances the audio clock and recognizes one more word for every
// WordDuration of audio received.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil {
		return nil
	}

	samples := int64(len(audio) / 2)
	a.audioTicks += samples * caption.TicksPerSecond / int64(a.cfg.SampleRateHz)

	wordTicks := caption.DurationToTicks(a.cfg.WordDuration)
	for a.audioTicks >= a.offset+int64(a.revealed+1)*wordTicks {
		words := strings.Fields(a.utterances[a.current].Text)
		a.revealed++
		if a.revealed < len(words) {
			a.enqueue(false)
			continue
		}
		a.enqueue(true)
		a.nextUtterance()
	}
	return nil
}

// Close ends the mock session. A partially recognized utterance is finalized
// with the words revealed so far, then the session stops.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	if a.cb != nil {
		if a.revealed > 0 {
			a.enqueue(true)
		}
		a.events <- func(cb stt.Callback) { cb.OnSessionStopped() }
	}
	close(a.events)
	return nil
}

func (a *Adapter) cancel(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	a.events <- func(cb stt.Callback) { cb.OnCanceled(err) }
	close(a.events)
}

// enqueue queues a result for the words revealed so far. Caller holds mu.
func (a *Adapter) enqueue(final bool) {
	u := a.utterances[a.current]
	words := strings.Fields(u.Text)
	result := models.RecognitionResult{
		Text:          strings.Join(words[:a.revealed], " "),
		OffsetTicks:   a.offset,
		DurationTicks: int64(a.revealed) * caption.DurationToTicks(a.cfg.WordDuration),
		IsFinal:       final,
		Language:      u.Language,
	}
	if final {
		a.events <- func(cb stt.Callback) { cb.OnRecognized(result) }
	} else {
		a.events <- func(cb stt.Callback) { cb.OnRecognizing(result) }
	}
}

// nextUtterance moves to the next scripted utterance after a gap. Caller holds mu.
func (a *Adapter) nextUtterance() {
	end := a.offset + int64(a.revealed)*caption.DurationToTicks(a.cfg.WordDuration)
	a.offset = end + caption.DurationToTicks(a.cfg.Gap)
	a.revealed = 0
	a.current = (a.current + 1) % len(a.utterances)
}

func (a *Adapter) dispatch(cb stt.Callback) {
	defer close(a.done)
	for ev := range a.events {
		ev(cb)
	}
}
