// Package replay provides an STT adapter that plays back recorded recognition
// results instead of recognizing audio.
//
// Recordings are JSON Lines, one event per line:
//
//	{"event":"recognizing","text":"Hello","offsetTicks":0,"durationTicks":5000000}
//	{"event":"recognized","text":"Hello world.","offsetTicks":0,"durationTicks":20000000}
//	{"event":"canceled","error":"network reset"}
//
// A missing event is inferred from isFinal. Blank lines and lines starting
// with # are skipped.
package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/schema"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/stt"
)

// Event kinds in a recording.
const (
	EventRecognizing = "recognizing"
	EventRecognized  = "recognized"
	EventCanceled    = "canceled"
)

// Record is one line of a recording.
type Record struct {
	Event string `json:"event"`
	models.RecognitionResult
	Error string `json:"error,omitempty"`
}

// Config controls playback.
type Config struct {
	// Pace delivers each result when its audio would have ended, measured
	// from Start, instead of as fast as possible.
	Pace bool
}

// Load parses and validates a recording.
func Load(r io.Reader) ([]Record, error) {
	v := schema.New()
	var records []Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		switch rec.Event {
		case "":
			rec.Event = EventRecognizing
			if rec.IsFinal {
				rec.Event = EventRecognized
			}
		case EventRecognizing:
			rec.IsFinal = false
		case EventRecognized:
			rec.IsFinal = true
		case EventCanceled:
		default:
			return nil, fmt.Errorf("line %d: unknown event %q", lineNo, rec.Event)
		}
		if rec.Event != EventCanceled {
			if err := v.Validate(rec.RecognitionResult); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Open loads a recording from a file.
func Open(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// FromResults turns results into records, finals as recognized and the rest
// as recognizing.
func FromResults(results []models.RecognitionResult) []Record {
	records := make([]Record, len(results))
	for i, r := range results {
		ev := EventRecognizing
		if r.IsFinal {
			ev = EventRecognized
		}
		records[i] = Record{Event: ev, RecognitionResult: r}
	}
	return records
}

// Adapter implements stt.Adapter by replaying records in order from one goroutine.
type Adapter struct {
	cfg     Config
	records []Record

	mu      sync.Mutex
	started bool
}

// New creates a replay adapter.
func New(cfg Config, records []Record) *Adapter {
	return &Adapter{cfg: cfg, records: records}
}

// Start begins playback.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errors.New("replay: already started")
	}
	a.started = true
	go a.play(ctx, cb)
	return nil
}

// SendAudio discards audio; results come from the recording.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	return nil
}

// Close is a no-op. Playback ends on its own with OnSessionStopped.
func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) play(ctx context.Context, cb stt.Callback) {
	start := time.Now()
	for _, rec := range a.records {
		if err := ctx.Err(); err != nil {
			cb.OnCanceled(err)
			return
		}
		if a.cfg.Pace && rec.Event != EventCanceled {
			due := start.Add(caption.TicksToDuration(rec.EndTicks()))
			select {
			case <-time.After(time.Until(due)):
			case <-ctx.Done():
				cb.OnCanceled(ctx.Err())
				return
			}
		}

		switch rec.Event {
		case EventCanceled:
			msg := rec.Error
			if msg == "" {
				msg = "canceled by recording"
			}
			cb.OnCanceled(errors.New("replay: " + msg))
			return
		case EventRecognized:
			cb.OnRecognized(rec.RecognitionResult)
		default:
			cb.OnRecognizing(rec.RecognitionResult)
		}
	}
	cb.OnSessionStopped()
}
