package caption

import "math"

// Cue is one timed caption entry as written to the output stream.
type Cue struct {
	// Sequence is the 1-based position of the cue in its session.
	// Only SubRip output prints it.
	Sequence   int    `json:"sequence"`
	Language   string `json:"language,omitempty"`
	Text       string `json:"text"`
	BeginTicks int64  `json:"beginTicks"`
	EndTicks   int64  `json:"endTicks"`
}

// TimelineState is the per-session memory of the Engine.
//
// The zero value is a fresh session. It must not be shared between sessions.
type TimelineState struct {
	// PreviousEnd is the end of the last emitted cue, valid when HasPrevious is set.
	PreviousEnd int64
	HasPrevious bool
	// Cursor indexes the first chunk of the current utterance not yet emitted.
	Cursor int
	// Sequence is the number of cues emitted so far.
	Sequence int
}

// Outcome describes what an Engine call did with the chunks it was given.
type Outcome struct {
	Emitted int
	// Suppressed holds chunks whose clamped range collapsed, with the times
	// they had after hold and clamp were applied.
	Suppressed []Chunk
}

// Engine converts revisable chunk lists into a strictly ordered,
// non-overlapping cue stream.
//
// The Engine itself is stateless. Every call takes the current TimelineState
// and returns the next one, so callers decide how to guard it.
type Engine struct {
	Mode Mode
	// Hold is added to the end of chunks emitted before their utterance is final,
	// and to the last chunk of a final result.
	Hold int64
}

// Recognizing handles an in-progress result.
//
// Only in real-time mode, and only chunks that have closed since the last call
// are emitted: the final chunk of the list may still grow and is held back.
// Every chunk passed over advances the cursor, whether emitted or suppressed.
func (e Engine) Recognizing(state TimelineState, chunks []Chunk) (TimelineState, []Cue, Outcome) {
	var outcome Outcome
	if e.Mode != ModeRealTime {
		return state, nil, outcome
	}

	closed := len(chunks) - 1
	var cues []Cue
	for i := state.Cursor; i < closed; i++ {
		c := chunks[i]
		c.EndTicks = addHold(c.EndTicks, e.Hold)
		var (
			cue Cue
			ok  bool
		)
		state, cue, ok = place(state, c)
		if !ok {
			outcome.Suppressed = append(outcome.Suppressed, suppressedChunk(state, c))
			continue
		}
		cues = append(cues, cue)
	}
	if closed > state.Cursor {
		state.Cursor = closed
	}
	outcome.Emitted = len(cues)
	return state, cues, outcome
}

// Recognized handles a final result in either mode.
//
// The last chunk is extended by Hold, then every chunk from the cursor on is
// emitted in order. The cursor is reset for the next utterance.
func (e Engine) Recognized(state TimelineState, chunks []Chunk) (TimelineState, []Cue, Outcome) {
	var outcome Outcome
	var cues []Cue
	for i := state.Cursor; i < len(chunks); i++ {
		c := chunks[i]
		if i == len(chunks)-1 {
			c.EndTicks = addHold(c.EndTicks, e.Hold)
		}
		var (
			cue Cue
			ok  bool
		)
		state, cue, ok = place(state, c)
		if !ok {
			outcome.Suppressed = append(outcome.Suppressed, suppressedChunk(state, c))
			continue
		}
		cues = append(cues, cue)
	}
	state.Cursor = 0
	outcome.Emitted = len(cues)
	return state, cues, outcome
}

// place clamps the chunk's begin to the previous cue's end and emits it unless
// the range collapsed. A suppressed chunk leaves the state untouched.
func place(state TimelineState, c Chunk) (TimelineState, Cue, bool) {
	begin := c.BeginTicks
	if state.HasPrevious && state.PreviousEnd > begin {
		begin = state.PreviousEnd
	}
	if begin >= c.EndTicks {
		return state, Cue{}, false
	}

	state.Sequence++
	state.PreviousEnd = c.EndTicks
	state.HasPrevious = true
	return state, Cue{
		Sequence:   state.Sequence,
		Text:       c.Text,
		BeginTicks: begin,
		EndTicks:   c.EndTicks,
	}, true
}

func suppressedChunk(state TimelineState, c Chunk) Chunk {
	if state.HasPrevious && state.PreviousEnd > c.BeginTicks {
		c.BeginTicks = state.PreviousEnd
	}
	return c
}

// addHold extends end by hold, saturating at the largest representable tick.
func addHold(end, hold int64) int64 {
	if end > math.MaxInt64-hold {
		return math.MaxInt64
	}
	return end + hold
}
