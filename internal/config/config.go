// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"ai-speech-captioning-service/internal/service/caption"
)

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	STT           STTConfig
	Caption       CaptionConfig
	StreamLimits  StreamLimitsConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the service and its listeners.
type ServiceConfig struct {
	Principal string
	GRPCPort  string
	HTTPPort  string
}

// STTConfig selects and configures the recognizer.
type STTConfig struct {
	Provider        string // mock, google, replay
	LanguageCode    string
	SampleRateHz    int
	InterimResults  bool
	AudioEncoding   string
	ProfanityFilter bool
	Phrases         []string
	MinStability    float64
	TagLanguage     bool
	// ReplayFile is the JSON Lines recording used by the replay provider.
	ReplayFile string
}

// CaptionConfig holds the default caption options for new sessions.
type CaptionConfig struct {
	MaxCaptionLength int
	MaxCaptionLines  int
	SubRip           bool
	Mode             string
	RealTimeDelay    time.Duration
}

// StreamLimitsConfig bounds the resources a single stream may use.
type StreamLimitsConfig struct {
	MaxAudioBytes int64
	MaxDuration   time.Duration
	MaxPartials   int
}

// KafkaConfig configures cue and transcript publishing.
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	TopicCues        string
	TopicTranscripts string
	Principal        string
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. Unparsable values fall
// back to their defaults.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-speech-captioning")
	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		STT: STTConfig{
			Provider:        envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode:    envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:    envOrDefaultInt("STT_SAMPLE_RATE_HZ", 8000),
			InterimResults:  envOrDefaultBool("STT_INTERIM_RESULTS", true),
			AudioEncoding:   envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
			ProfanityFilter: envOrDefaultBool("STT_PROFANITY_FILTER", false),
			Phrases:         envOrDefaultList("STT_PHRASES", nil),
			MinStability:    envOrDefaultFloat("STT_MIN_STABILITY", 0),
			TagLanguage:     envOrDefaultBool("STT_TAG_LANGUAGE", false),
			ReplayFile:      envOrDefault("STT_REPLAY_FILE", ""),
		},
		Caption: CaptionConfig{
			MaxCaptionLength: envOrDefaultInt("CAPTION_MAX_LENGTH", 0),
			MaxCaptionLines:  envOrDefaultInt("CAPTION_MAX_LINES", caption.DefaultCaptionLines),
			SubRip:           envOrDefaultBool("CAPTION_SRT", false),
			Mode:             envOrDefault("CAPTION_MODE", "offline"),
			RealTimeDelay:    envOrDefaultDuration("CAPTION_REALTIME_DELAY", 0),
		},
		StreamLimits: StreamLimitsConfig{
			MaxAudioBytes: envOrDefaultInt64("STREAM_MAX_AUDIO_BYTES", 5*1024*1024),
			MaxDuration:   envOrDefaultDuration("STREAM_MAX_DURATION", 5*time.Minute),
			MaxPartials:   envOrDefaultInt("STREAM_MAX_PARTIALS", 500),
		},
		Kafka: KafkaConfig{
			Enabled:          envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:          envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicCues:        envOrDefault("KAFKA_TOPIC_CUES", "interaction.caption.cue"),
			TopicTranscripts: envOrDefault("KAFKA_TOPIC_TRANSCRIPTS", "interaction.transcript.final"),
			Principal:        envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

// CaptionOptions maps the caption section onto caption.Options.
// An unknown mode is reported by Validate.
func (c *Configuration) CaptionOptions() caption.Options {
	mode, _ := caption.ParseMode(c.Caption.Mode)
	return caption.Options{
		MaxCaptionLength: c.Caption.MaxCaptionLength,
		MaxCaptionLines:  c.Caption.MaxCaptionLines,
		SubRip:           c.Caption.SubRip,
		Mode:             mode,
		RealTimeDelay:    c.Caption.RealTimeDelay,
	}
}

// Validate checks the settings that would otherwise fail at session start.
func (c *Configuration) Validate() error {
	if _, err := caption.ParseMode(c.Caption.Mode); err != nil {
		return err
	}
	if err := c.CaptionOptions().Validate(); err != nil {
		return err
	}
	switch c.STT.Provider {
	case "mock", "google":
	case "replay":
		if c.STT.ReplayFile == "" {
			return &caption.ConfigurationError{Field: "STT_REPLAY_FILE", Reason: "is required by the replay provider"}
		}
	default:
		return &caption.ConfigurationError{Field: "STT_PROVIDER", Reason: "must be mock, google or replay"}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// envOrDefaultDuration accepts Go durations ("1m30s") and plain seconds ("3").
func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
