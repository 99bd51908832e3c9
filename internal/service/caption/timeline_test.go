package caption

import (
	"math"
	"math/rand"
	"strings"
	"testing"
)

func timed(text string, maxLen, maxLines int, offset, duration int64) []Chunk {
	return AssignTimes(Split(text, maxLen, maxLines), offset, duration)
}

func TestEngine_FinalShortTextEmitsOneCueAtOffset(t *testing.T) {
	opts := Options{MaxCaptionLength: 40, MaxCaptionLines: 2}
	engine := opts.Engine()
	chunks := AssignTimes(opts.Split("Hello world"), 7_000_000, 20_000_000)

	state, cues, outcome := engine.Recognized(TimelineState{}, chunks)

	if len(cues) != 1 || outcome.Emitted != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
	if cues[0].BeginTicks != 7_000_000 {
		t.Errorf("expected begin at offset, got %d", cues[0].BeginTicks)
	}
	if cues[0].EndTicks != 27_000_000+HoldInterval {
		t.Errorf("expected end with hold %d, got %d", 27_000_000+HoldInterval, cues[0].EndTicks)
	}
	if cues[0].Text != "Hello world\n"+FillerLine {
		t.Errorf("unexpected text %q", cues[0].Text)
	}
	if cues[0].Sequence != 1 || state.Sequence != 1 {
		t.Errorf("expected sequence 1, got cue=%d state=%d", cues[0].Sequence, state.Sequence)
	}
	if state.Cursor != 0 {
		t.Errorf("expected cursor reset, got %d", state.Cursor)
	}
}

func TestEngine_WholeResultHasNoHold(t *testing.T) {
	engine := DefaultOptions().Engine()
	chunks := AssignTimes(Whole("Hello world"), 0, 20_000_000)

	_, cues, _ := engine.Recognized(TimelineState{}, chunks)

	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
	if got := Format(cues[0], false); got != "00:00:00.000 --> 00:00:02.000\nHello world\n\n" {
		t.Errorf("unexpected cue %q", got)
	}
}

func TestEngine_RecognizingHoldsOpenChunkUntilItCloses(t *testing.T) {
	engine := Engine{Mode: ModeRealTime, Hold: HoldInterval}

	// First partial fits a single, still open chunk.
	state, cues, _ := engine.Recognizing(TimelineState{}, timed("hello there", 20, 1, 0, 10_000_000))
	if len(cues) != 0 {
		t.Fatalf("expected no cue for an open chunk, got %+v", cues)
	}
	if state.Cursor != 0 {
		t.Errorf("expected cursor 0, got %d", state.Cursor)
	}

	// The second partial closes the first chunk and opens another.
	chunks := timed("hello there my friend how are", 20, 1, 0, 30_000_000)
	if len(chunks) != 2 || chunks[0].Text != "hello there my" {
		t.Fatalf("unexpected chunks %+v", chunks)
	}
	state, cues, _ = engine.Recognizing(state, chunks)

	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
	if cues[0].Text != "hello there my" {
		t.Errorf("unexpected text %q", cues[0].Text)
	}
	if cues[0].BeginTicks != 0 || cues[0].EndTicks != 15_000_000+HoldInterval {
		t.Errorf("expected [0, %d), got [%d, %d)", 15_000_000+HoldInterval, cues[0].BeginTicks, cues[0].EndTicks)
	}
	if state.Cursor != 1 {
		t.Errorf("expected cursor 1, got %d", state.Cursor)
	}

	// Repeating the same partial emits nothing new.
	state, cues, _ = engine.Recognizing(state, chunks)
	if len(cues) != 0 {
		t.Errorf("expected no repeated cue, got %+v", cues)
	}

	// The final result emits only the remainder, clamped behind the held cue.
	state, cues, _ = engine.Recognized(state, timed("hello there my friend how are you", 20, 1, 0, 40_000_000))
	if len(cues) != 1 {
		t.Fatalf("expected 1 final cue, got %d", len(cues))
	}
	if cues[0].Text != "friend how are you" {
		t.Errorf("unexpected text %q", cues[0].Text)
	}
	if cues[0].BeginTicks != 25_000_000 {
		t.Errorf("expected begin clamped to 25000000, got %d", cues[0].BeginTicks)
	}
	if cues[0].EndTicks != 40_000_000+HoldInterval {
		t.Errorf("expected end %d, got %d", 40_000_000+HoldInterval, cues[0].EndTicks)
	}
	if cues[0].Sequence != 2 {
		t.Errorf("expected sequence 2, got %d", cues[0].Sequence)
	}
	if state.Cursor != 0 {
		t.Errorf("expected cursor reset, got %d", state.Cursor)
	}
}

func TestEngine_OfflineIgnoresRecognizing(t *testing.T) {
	engine := Engine{Mode: ModeOffline, Hold: HoldInterval}
	chunks := timed(strings.Repeat("many words here ", 10), 20, 1, 0, 50_000_000)

	state, cues, _ := engine.Recognizing(TimelineState{}, chunks)

	if len(cues) != 0 {
		t.Errorf("expected no cues in offline mode, got %d", len(cues))
	}
	if state != (TimelineState{}) {
		t.Errorf("expected untouched state, got %+v", state)
	}

	_, cues, _ = engine.Recognized(state, chunks)
	if len(cues) != len(chunks) {
		t.Errorf("expected %d cues for the final result, got %d", len(chunks), len(cues))
	}
}

func TestEngine_SuppressesCollapsedRange(t *testing.T) {
	engine := Engine{Mode: ModeRealTime, Hold: HoldInterval}
	state := TimelineState{PreviousEnd: 50_000_000, HasPrevious: true, Sequence: 4}

	chunks := []Chunk{
		{Text: "too early", BeginTicks: 10_000_000, EndTicks: 30_000_000},
		{Text: "open", BeginTicks: 30_000_000, EndTicks: 40_000_000},
	}
	next, cues, outcome := engine.Recognizing(state, chunks)

	if len(cues) != 0 {
		t.Fatalf("expected suppression, got %+v", cues)
	}
	if len(outcome.Suppressed) != 1 {
		t.Fatalf("expected 1 suppressed chunk, got %d", len(outcome.Suppressed))
	}
	if s := outcome.Suppressed[0]; s.BeginTicks != 50_000_000 || s.EndTicks != 40_000_000 {
		t.Errorf("unexpected suppressed range [%d, %d)", s.BeginTicks, s.EndTicks)
	}
	if next.PreviousEnd != 50_000_000 || next.Sequence != 4 {
		t.Errorf("suppression changed the timeline: %+v", next)
	}
	if next.Cursor != 1 {
		t.Errorf("expected cursor to advance past the suppressed chunk, got %d", next.Cursor)
	}
}

func TestEngine_ZeroLengthRangeIsSuppressed(t *testing.T) {
	engine := Engine{Mode: ModeOffline}
	state := TimelineState{PreviousEnd: 20, HasPrevious: true}

	next, cues, _ := engine.Recognized(state, []Chunk{{Text: "x", BeginTicks: 10, EndTicks: 20}})

	if len(cues) != 0 {
		t.Errorf("expected zero-length cue to be suppressed, got %+v", cues)
	}
	if next.PreviousEnd != 20 {
		t.Errorf("expected previous end unchanged, got %d", next.PreviousEnd)
	}
}

func TestEngine_FinalShorterThanCursor(t *testing.T) {
	engine := Engine{Mode: ModeRealTime, Hold: HoldInterval}
	state := TimelineState{Cursor: 3, PreviousEnd: 100, HasPrevious: true, Sequence: 3}

	next, cues, _ := engine.Recognized(state, []Chunk{{Text: "revised", BeginTicks: 0, EndTicks: 50}})

	if len(cues) != 0 {
		t.Errorf("expected no cues, got %+v", cues)
	}
	if next.Cursor != 0 {
		t.Errorf("expected cursor reset, got %d", next.Cursor)
	}
}

func TestEngine_MonotonicAcrossRevisedResults(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := strings.Fields("alpha bravo charlie delta echo foxtrot golf hotel india juliett kilo lima mike november oscar papa quebec romeo sierra tango uniform victor whiskey xray yankee zulu")

	for _, mode := range []Mode{ModeOffline, ModeRealTime} {
		opts := Options{MaxCaptionLength: 20 + rng.Intn(20), MaxCaptionLines: 1 + rng.Intn(3), Mode: mode}
		engine := opts.Engine()

		var (
			state   TimelineState
			emitted []Cue
			offset  int64
		)
		for utterance := 0; utterance < 40; utterance++ {
			var text []string
			n := 1 + rng.Intn(30)
			for i := 0; i < n; i++ {
				text = append(text, words[rng.Intn(len(words))])
				// Partial timestamps are revised: durations jitter between updates.
				duration := int64(i+1)*3_000_000 + rng.Int63n(4_000_000)
				var cues []Cue
				state, cues, _ = engine.Recognizing(state, AssignTimes(opts.Split(strings.Join(text, " ")), offset, duration))
				emitted = append(emitted, cues...)
			}
			duration := int64(n)*3_000_000 + rng.Int63n(2_000_000)
			var cues []Cue
			state, cues, _ = engine.Recognized(state, AssignTimes(opts.Split(strings.Join(text, " ")), offset, duration))
			emitted = append(emitted, cues...)

			// The next utterance sometimes starts before the held end of this one.
			offset += duration - rng.Int63n(1_500_000)
		}

		if len(emitted) == 0 {
			t.Fatalf("%s: expected cues", mode)
		}
		for i, c := range emitted {
			if c.BeginTicks >= c.EndTicks {
				t.Errorf("%s: cue %d has empty range [%d, %d)", mode, i, c.BeginTicks, c.EndTicks)
			}
			if c.Sequence != i+1 {
				t.Errorf("%s: cue %d has sequence %d", mode, i, c.Sequence)
			}
			if i > 0 && emitted[i-1].EndTicks > c.BeginTicks {
				t.Errorf("%s: cue %d begins at %d before previous end %d", mode, i, c.BeginTicks, emitted[i-1].EndTicks)
			}
		}
	}
}

func TestEngine_HoldSaturatesAtLatestTick(t *testing.T) {
	engine := Engine{Mode: ModeRealTime, Hold: HoldInterval}
	chunks := []Chunk{
		{Text: "late", BeginTicks: math.MaxInt64 - 40_000_000, EndTicks: math.MaxInt64 - 30_000_000},
		{Text: "later", BeginTicks: math.MaxInt64 - 10_000_000, EndTicks: math.MaxInt64 - 1},
	}

	state, cues, _ := engine.Recognizing(TimelineState{}, chunks)
	if len(cues) != 1 || cues[0].EndTicks != math.MaxInt64-30_000_000+HoldInterval {
		t.Fatalf("expected the closed chunk held, got %+v", cues)
	}

	_, cues, outcome := engine.Recognized(state, chunks)
	if len(cues) != 1 || len(outcome.Suppressed) != 0 {
		t.Fatalf("expected the last chunk emitted, got %+v suppressed=%d", cues, len(outcome.Suppressed))
	}
	if cues[0].EndTicks != math.MaxInt64 {
		t.Errorf("expected end saturated at %d, got %d", int64(math.MaxInt64), cues[0].EndTicks)
	}
	if cues[0].BeginTicks >= cues[0].EndTicks {
		t.Errorf("expected a non-empty cue, got [%d, %d)", cues[0].BeginTicks, cues[0].EndTicks)
	}
}
