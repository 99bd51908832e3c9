package events

import (
	"context"
	"time"

	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/captioning"
)

// CuePublisher is the part of Publisher a CueSink needs.
type CuePublisher interface {
	PublishCue(ctx context.Context, key string, event any) error
}

// CueSink publishes every emitted cue as a models.CueEvent keyed by session.
type CueSink struct {
	publisher CuePublisher
	tenantId  string
	subRip    bool
	timeout   time.Duration
	now       func() time.Time
}

// NewCueSink creates a sink that publishes cues for one tenant.
func NewCueSink(publisher CuePublisher, tenantId string, subRip bool) *CueSink {
	return &CueSink{
		publisher: publisher,
		tenantId:  tenantId,
		subRip:    subRip,
		timeout:   10 * time.Second,
		now:       time.Now,
	}
}

// WriteCue implements captioning.Sink.
func (s *CueSink) WriteCue(cue captioning.Cue) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ev := models.CueEvent{
		EventType:     models.EventTypeCue,
		InteractionID: cue.SessionId,
		TenantID:      s.tenantId,
		Timestamp:     s.now().UnixMilli(),
		UtteranceID:   cue.UtteranceId,
		Sequence:      cue.Sequence,
		Language:      cue.Language,
		Text:          cue.Text,
		BeginMs:       cue.BeginTicks / caption.TicksPerMillisecond,
		EndMs:         cue.EndTicks / caption.TicksPerMillisecond,
		Formatted:     caption.Format(cue.Cue, s.subRip),
	}
	return s.publisher.PublishCue(ctx, cue.SessionId, ev)
}
