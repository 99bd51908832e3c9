package sink

import (
	"errors"
	"sync"
	"time"

	"ai-speech-captioning-service/internal/service/captioning"
)

// ErrClosed is returned for cues written to a closed Delayed sink.
var ErrClosed = errors.New("sink closed")

type pending struct {
	cue captioning.Cue
	due time.Time
}

// Delayed forwards cues to another sink a fixed delay after it received them.
// Delivery runs on its own goroutine and preserves order.
type Delayed struct {
	next  captioning.Sink
	delay time.Duration
	queue chan pending
	done  chan struct{}

	mu     sync.Mutex
	closed bool

	errMu sync.Mutex
	err   error
}

// NewDelayed starts a Delayed sink in front of next.
func NewDelayed(next captioning.Sink, delay time.Duration) *Delayed {
	d := &Delayed{
		next:  next,
		delay: delay,
		queue: make(chan pending, 1024),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

// WriteCue queues the cue. Errors from the wrapped sink are reported by Close.
func (d *Delayed) WriteCue(cue captioning.Cue) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.queue <- pending{cue: cue, due: time.Now().Add(d.delay)}
	return nil
}

// Close waits until every queued cue has been delivered and returns the first
// error the wrapped sink reported.
func (d *Delayed) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

func (d *Delayed) run() {
	defer close(d.done)
	for p := range d.queue {
		if wait := time.Until(p.due); wait > 0 {
			time.Sleep(wait)
		}
		if err := d.next.WriteCue(p.cue); err != nil {
			d.errMu.Lock()
			if d.err == nil {
				d.err = err
			}
			d.errMu.Unlock()
		}
	}
}
