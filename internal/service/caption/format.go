package caption

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Millisecond separators of the two output formats.
const (
	SubRipSeparator = ','
	WebVTTSeparator = '.'
)

// ErrInvalidTimestamp is returned for strings that are not HH:MM:SS,mmm or HH:MM:SS.mmm.
var ErrInvalidTimestamp = errors.New("invalid caption timestamp")

// Header returns the text written once before the first cue.
func Header(subRip bool) string {
	if subRip {
		return ""
	}
	return "WEBVTT\n\n"
}

// Format renders one cue. SubRip cues are prefixed with their sequence number.
func Format(cue Cue, subRip bool) string {
	var b strings.Builder
	sep := byte(WebVTTSeparator)
	if subRip {
		sep = SubRipSeparator
		fmt.Fprintf(&b, "%d\n", cue.Sequence)
	}
	fmt.Fprintf(&b, "%s --> %s\n", FormatTimestamp(cue.BeginTicks, sep), FormatTimestamp(cue.EndTicks, sep))
	if cue.Language != "" {
		fmt.Fprintf(&b, "[%s] ", cue.Language)
	}
	b.WriteString(cue.Text)
	b.WriteString("\n\n")
	return b.String()
}

// FormatTimestamp renders ticks as HH:MM:SS<sep>mmm, truncated to milliseconds.
// Hours are not wrapped at 24.
func FormatTimestamp(ticks int64, sep byte) string {
	if ticks < 0 {
		ticks = 0
	}
	ms := ticks / TicksPerMillisecond
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", ms/3600000, (ms/60000)%60, (ms/1000)%60, sep, ms%1000)
}

// ParseTimestamp parses a SubRip or WebVTT timestamp into ticks.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexAny(s, ",.")
	if i < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	clock, frac := s[:i], s[i+1:]
	parts := strings.Split(clock, ":")
	if len(parts) != 3 || len(frac) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	var fields [4]int64
	for j, p := range append(parts, frac) {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 || p == "" {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		fields[j] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	ms := fields[0]*3600000 + fields[1]*60000 + fields[2]*1000 + fields[3]
	return ms * TicksPerMillisecond, nil
}

// ParseTimeRange parses a "begin --> end" cue timing line into ticks.
func ParseTimeRange(line string) (begin, end int64, err error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("%w: missing arrow in %q", ErrInvalidTimestamp, line)
	}
	if begin, err = ParseTimestamp(left); err != nil {
		return 0, 0, err
	}
	// WebVTT allows cue settings after the end timestamp.
	right = strings.TrimSpace(right)
	if sp := strings.IndexByte(right, ' '); sp >= 0 {
		right = right[:sp]
	}
	if end, err = ParseTimestamp(right); err != nil {
		return 0, 0, err
	}
	return begin, end, nil
}
