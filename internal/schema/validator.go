// Package schema validates recognition results received from outside the process.
package schema

import (
	"fmt"
	"math"
	"strings"

	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/service/caption"
)

// maxEndTicks leaves room for the hold a cue end may still receive.
const maxEndTicks = math.MaxInt64 - caption.HoldInterval

// ValidationError reports a malformed recognition result.
type ValidationError struct {
	// Index is the position of the result in its batch, or -1 for a single result.
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid recognition result: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid recognition result #%d: %s %s", e.Index, e.Field, e.Reason)
}

// Validator checks recognition results before they reach a captioning session.
type Validator struct {
	// MaxTextLength bounds the text of a single result; zero means unbounded.
	MaxTextLength int
}

// New returns a validator with a 10,000 character text limit.
func New() *Validator {
	return &Validator{MaxTextLength: 10000}
}

// Validate checks a single result.
func (v *Validator) Validate(r models.RecognitionResult) error {
	return v.validate(-1, r)
}

// ValidateBatch checks results in order and reports the first failure.
// A batch must not go backwards in time between final results.
func (v *Validator) ValidateBatch(results []models.RecognitionResult) error {
	var lastFinalOffset int64
	for i, r := range results {
		if err := v.validate(i, r); err != nil {
			return err
		}
		if !r.IsFinal {
			continue
		}
		if r.OffsetTicks < lastFinalOffset {
			return &ValidationError{Index: i, Field: "offsetTicks", Reason: "precedes the previous final result"}
		}
		lastFinalOffset = r.OffsetTicks
	}
	return nil
}

func (v *Validator) validate(index int, r models.RecognitionResult) error {
	if r.OffsetTicks < 0 {
		return &ValidationError{Index: index, Field: "offsetTicks", Reason: "must not be negative"}
	}
	if r.DurationTicks < 0 {
		return &ValidationError{Index: index, Field: "durationTicks", Reason: "must not be negative"}
	}
	if r.DurationTicks > maxEndTicks-r.OffsetTicks {
		return &ValidationError{Index: index, Field: "durationTicks", Reason: "overflows"}
	}
	if v.MaxTextLength > 0 && len(r.Text) > v.MaxTextLength {
		return &ValidationError{Index: index, Field: "text", Reason: fmt.Sprintf("exceeds %d bytes", v.MaxTextLength)}
	}
	if strings.ContainsRune(r.Language, '\n') || strings.ContainsAny(r.Language, "[]") {
		return &ValidationError{Index: index, Field: "language", Reason: "contains invalid characters"}
	}
	return nil
}
