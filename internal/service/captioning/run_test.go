package captioning

import (
	"context"
	"errors"
	"testing"

	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/stt"
)

// scriptedAdapter replays a fixed list of results on Start.
type scriptedAdapter struct {
	results  []models.RecognitionResult
	startErr error
	closed   bool
}

func (a *scriptedAdapter) Start(ctx context.Context, cb stt.Callback) error {
	if a.startErr != nil {
		return a.startErr
	}
	go func() {
		for _, r := range a.results {
			if r.IsFinal {
				cb.OnRecognized(r)
			} else {
				cb.OnRecognizing(r)
			}
		}
		cb.OnSessionStopped()
	}()
	return nil
}

func (a *scriptedAdapter) SendAudio(ctx context.Context, audio []byte) error { return nil }

func (a *scriptedAdapter) Close() error {
	a.closed = true
	return nil
}

func TestRun(t *testing.T) {
	adapter := &scriptedAdapter{results: []models.RecognitionResult{
		{Text: "Hello", DurationTicks: 5_000_000},
		{Text: "Hello world.", DurationTicks: 20_000_000, IsFinal: true},
	}}
	s, sink := newTestSession(t, caption.DefaultOptions())

	report, err := Run(context.Background(), adapter, s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !adapter.closed {
		t.Error("expected adapter to be closed")
	}
	if report.Recognizing != 1 || report.Recognized != 1 || report.Emitted != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	if len(sink.cues) != 1 || sink.cues[0].EndTicks != 20_000_000 {
		t.Errorf("unexpected cues %+v", sink.cues)
	}
}

func TestRun_StartError(t *testing.T) {
	startErr := errors.New("no credentials")
	s, _ := newTestSession(t, caption.DefaultOptions())

	_, err := Run(context.Background(), &scriptedAdapter{startErr: startErr}, s)
	if !errors.Is(err, startErr) {
		t.Fatalf("expected start error, got %v", err)
	}
	if s.State() != StateCanceled {
		t.Errorf("expected CANCELED, got %s", s.State())
	}
}
