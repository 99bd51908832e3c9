// Package models defines the data structures exchanged with recognizers and event consumers.
package models

// RecognitionResult is one delivery from a speech recognizer.
// Non-final results for an utterance are superseded by later deliveries
// until one arrives with IsFinal set.
type RecognitionResult struct {
	Text          string `json:"text"`
	OffsetTicks   int64  `json:"offsetTicks"`
	DurationTicks int64  `json:"durationTicks"`
	IsFinal       bool   `json:"isFinal"`
	Language      string `json:"language,omitempty"`
}

// EndTicks returns the offset at which the recognized audio ends.
func (r RecognitionResult) EndTicks() int64 {
	return r.OffsetTicks + r.DurationTicks
}
