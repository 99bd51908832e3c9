package models

// Event types published to Kafka.
const (
	EventTypeCue        = "interaction.caption.cue"
	EventTypeTranscript = "interaction.transcript.final"
)

// CueEvent is published for every emitted caption cue.
type CueEvent struct {
	EventType     string `json:"eventType"`
	InteractionID string `json:"interactionId"`
	TenantID      string `json:"tenantId"`
	Timestamp     int64  `json:"timestamp"`
	UtteranceID   string `json:"utteranceId"`
	Sequence      int    `json:"sequence"`
	Language      string `json:"language,omitempty"`
	Text          string `json:"text"`
	BeginMs       int64  `json:"beginMs"`
	EndMs         int64  `json:"endMs"`
	// Formatted is the cue rendered in the session's output format.
	Formatted string `json:"formatted"`
}

// TranscriptFinal is published for every final recognition result.
type TranscriptFinal struct {
	EventType     string `json:"eventType"`
	InteractionID string `json:"interactionId"`
	TenantID      string `json:"tenantId"`
	Timestamp     int64  `json:"timestamp"`
	UtteranceID   string `json:"utteranceId"`
	Text          string `json:"text"`
	Language      string `json:"language,omitempty"`
	AudioOffsetMs int64  `json:"audioOffsetMs"`
	DurationMs    int64  `json:"durationMs"`
}
