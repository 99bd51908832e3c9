// Package caption turns recognition results into timed caption cues.
//
// The package is split along the pipeline a result travels:
//
//	text ──Split──→ []Chunk ──AssignTimes──→ timed []Chunk ──Engine──→ []Cue ──Format──→ WebVTT/SRT
//
// Everything here is synchronous and free of shared state. The caller owns the
// TimelineState and passes it into every Engine call.
package caption

import (
	"fmt"
	"strings"
	"time"
)

// TicksPerSecond is the resolution of all offsets and durations (100ns ticks).
const TicksPerSecond int64 = 10_000_000

// TicksPerMillisecond is the smallest unit the caption formats can express.
const TicksPerMillisecond = TicksPerSecond / 1000

// HoldInterval is added to the end of a chunk whose true end is not yet known.
const HoldInterval = TicksPerSecond

// MinCaptionLength is the smallest accepted MaxCaptionLength when chunking is enabled.
const MinCaptionLength = 20

// DefaultCaptionLines is used when MaxCaptionLines is not configured.
const DefaultCaptionLines = 3

// Mode selects when cues are emitted.
type Mode int

const (
	// ModeOffline emits cues only for final results.
	ModeOffline Mode = iota
	// ModeRealTime also emits completed chunks of in-progress results.
	ModeRealTime
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeOffline:
		return "offline"
	case ModeRealTime:
		return "realtime"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMode accepts "offline" and "realtime" (case-insensitive, "real-time" too).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "offline", "":
		return ModeOffline, nil
	case "realtime", "real-time", "real_time":
		return ModeRealTime, nil
	default:
		return ModeOffline, &ConfigurationError{Field: "captioningMode", Reason: fmt.Sprintf("unknown mode %q", s)}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Options configures a captioning session.
type Options struct {
	// MaxCaptionLength is the maximum characters per caption line.
	// Zero disables chunking: every result becomes a single cue.
	MaxCaptionLength int `json:"maxCaptionLength,omitempty"`
	// MaxCaptionLines is the maximum number of lines per cue when chunking.
	MaxCaptionLines int `json:"maxCaptionLines,omitempty"`
	// SubRip selects SRT output instead of WebVTT.
	SubRip bool `json:"subRip,omitempty"`
	// Mode selects offline or real-time emission.
	Mode Mode `json:"mode,omitempty"`
	// RealTimeDelay is extra latency applied by the sink before a cue is shown.
	RealTimeDelay time.Duration `json:"realTimeDelay,omitempty"`
}

// DefaultOptions returns WebVTT offline captioning without chunking.
func DefaultOptions() Options {
	return Options{
		MaxCaptionLines: DefaultCaptionLines,
		Mode:            ModeOffline,
	}
}

// Chunking reports whether results are split into bounded chunks.
func (o Options) Chunking() bool {
	return o.MaxCaptionLength > 0
}

// Engine returns the continuity engine configured for these options.
func (o Options) Engine() Engine {
	e := Engine{Mode: o.Mode}
	if o.Chunking() {
		e.Hold = HoldInterval
	}
	return e
}

// Split chunks text according to the options.
func (o Options) Split(text string) []Chunk {
	if !o.Chunking() {
		return Whole(text)
	}
	return Split(text, o.MaxCaptionLength, o.lines())
}

func (o Options) lines() int {
	if o.MaxCaptionLines <= 0 {
		return DefaultCaptionLines
	}
	return o.MaxCaptionLines
}

// Validate checks the bounds the engine relies on.
// A zero MaxCaptionLines is accepted and means DefaultCaptionLines.
func (o Options) Validate() error {
	if o.MaxCaptionLength < 0 {
		return &ConfigurationError{Field: "maxCaptionLength", Reason: "must not be negative"}
	}
	if o.Chunking() && o.MaxCaptionLength < MinCaptionLength {
		return &ConfigurationError{
			Field:  "maxCaptionLength",
			Reason: fmt.Sprintf("must be at least %d, got %d", MinCaptionLength, o.MaxCaptionLength),
		}
	}
	if o.MaxCaptionLines < 0 {
		return &ConfigurationError{Field: "maxCaptionLines", Reason: "must be at least 1"}
	}
	if o.Mode != ModeOffline && o.Mode != ModeRealTime {
		return &ConfigurationError{Field: "captioningMode", Reason: fmt.Sprintf("unknown mode %d", int(o.Mode))}
	}
	if o.RealTimeDelay < 0 {
		return &ConfigurationError{Field: "realTimeDelaySeconds", Reason: "must not be negative"}
	}
	if o.RealTimeDelay%time.Second != 0 {
		return &ConfigurationError{Field: "realTimeDelaySeconds", Reason: "must be a whole number of seconds"}
	}
	return nil
}

// ConfigurationError reports an invalid caption option.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid caption configuration: %s %s", e.Field, e.Reason)
}

// DurationToTicks converts a duration to ticks.
func DurationToTicks(d time.Duration) int64 {
	return int64(d / 100)
}

// TicksToDuration converts ticks to a duration.
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * 100
}
