package viewer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"ai-speech-captioning-service/internal/models"
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NewReader reads partition 0 of topic, starting an hour back.
// A partition reader without a consumer group works better through port-forward.
func NewReader(ctx context.Context, brokers []string, topic string) *kafka.Reader {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour))
	return reader
}

// Consume forwards cue and transcript events from reader to the hub until ctx
// is done. Messages that are not JSON or carry another event type are skipped.
func Consume(ctx context.Context, hub *Hub, reader MessageReader, topic string) {
	logger := hub.logger.With().Str("topic", topic).Logger()
	logger.Info().Msg("Consuming caption events")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Err(err).Msg("Kafka read error")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Warn().Err(err).Msg("JSON unmarshal error")
			continue
		}
		if event.EventType != models.EventTypeCue && event.EventType != models.EventTypeTranscript {
			continue
		}

		logger.Debug().
			Str("eventType", event.EventType).
			Str("utteranceId", event.UtteranceID).
			Msg("Received event")
		hub.Broadcast(ctx, event)
	}
}
