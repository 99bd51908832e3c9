// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-speech-captioning-service/internal/observability/metrics"
)

// Publisher publishes caption cues and final transcripts to separate Kafka topics.
type Publisher struct {
	writerCues        *kafka.Writer
	writerTranscripts *kafka.Writer
	principal         string
	topicCues         string
	topicTranscripts  string
	enabled           bool
	metrics           *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers          []string
	TopicCues        string
	TopicTranscripts string
	Principal        string
	Enabled          bool
}

// New creates a new Kafka event publisher with separate topics for cues and final transcripts.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	// Handle nil config case
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:        cfg.Principal,
			topicCues:        cfg.TopicCues,
			topicTranscripts: cfg.TopicTranscripts,
			enabled:          false,
			metrics:          m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCues", cfg.TopicCues).
		Str("topicTranscripts", cfg.TopicTranscripts).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerCues:        newWriter(cfg.Brokers, cfg.TopicCues, transport),
		writerTranscripts: newWriter(cfg.Brokers, cfg.TopicTranscripts, transport),
		principal:         cfg.Principal,
		topicCues:         cfg.TopicCues,
		topicTranscripts:  cfg.TopicTranscripts,
		enabled:           true,
		metrics:           m,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishCue publishes a caption cue event to the cue topic.
// Cues of one session share a key, so a hash balancer keeps them in one partition and in order.
func (p *Publisher) PublishCue(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerCues, p.topicCues, "cue", key, event)
}

// PublishTranscript publishes a final transcript event to the transcript topic.
func (p *Publisher) PublishTranscript(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerTranscripts, p.topicTranscripts, "transcript", key, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerCues != nil {
		if e := p.writerCues.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing cue writer")
			err = e
		}
	}
	if p.writerTranscripts != nil {
		if e := p.writerTranscripts.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing transcript writer")
			err = e
		}
	}
	return err
}
