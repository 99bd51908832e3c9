// Package sink provides destinations for caption cues.
package sink

import (
	"errors"
	"io"
	"sync"

	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/captioning"
)

// Writer renders cues as WebVTT or SRT onto an io.Writer.
// The format header is written once, before the first cue.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	subRip bool
	header bool
}

// NewWriter creates a Writer for the given format.
func NewWriter(w io.Writer, subRip bool) *Writer {
	return &Writer{w: w, subRip: subRip}
}

// WriteCue implements captioning.Sink.
func (w *Writer) WriteCue(cue captioning.Cue) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writeHeader(); err != nil {
		return err
	}
	_, err := io.WriteString(w.w, caption.Format(cue.Cue, w.subRip))
	return err
}

// Finish writes the header if no cue has been written, so an empty session
// still produces a valid document.
func (w *Writer) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeader()
}

func (w *Writer) writeHeader() error {
	if w.header {
		return nil
	}
	w.header = true
	if h := caption.Header(w.subRip); h != "" {
		_, err := io.WriteString(w.w, h)
		return err
	}
	return nil
}

// Multi fans every cue out to all sinks. A failing sink does not stop the
// others; the errors are joined.
func Multi(sinks ...captioning.Sink) captioning.Sink {
	return multi(sinks)
}

type multi []captioning.Sink

func (m multi) WriteCue(cue captioning.Cue) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteCue(cue); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
