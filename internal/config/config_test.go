package config

import (
	"errors"
	"testing"
	"time"

	"ai-speech-captioning-service/internal/service/caption"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear relevant env vars
	envVars := []string{
		"SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT",
		"STT_PROVIDER", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ",
		"STT_INTERIM_RESULTS", "STT_AUDIO_ENCODING", "STT_PHRASES",
		"CAPTION_MAX_LENGTH", "CAPTION_MAX_LINES", "CAPTION_MODE", "CAPTION_SRT", "CAPTION_REALTIME_DELAY",
		"STREAM_MAX_AUDIO_BYTES", "STREAM_MAX_DURATION", "STREAM_MAX_PARTIALS",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL",
	}
	for _, v := range envVars {
		t.Setenv(v, "")
	}

	cfg := Load()

	// Service defaults
	if cfg.Service.Principal != "svc-speech-captioning" {
		t.Errorf("expected default principal 'svc-speech-captioning', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.Service.HTTPPort)
	}

	// STT defaults
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 8000 {
		t.Errorf("expected default sample rate 8000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != true {
		t.Errorf("expected default interim results true, got %v", cfg.STT.InterimResults)
	}
	if cfg.STT.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.STT.AudioEncoding)
	}
	if cfg.STT.Phrases != nil {
		t.Errorf("expected no phrases, got %v", cfg.STT.Phrases)
	}

	// Caption defaults
	opts := cfg.CaptionOptions()
	if opts != caption.DefaultOptions() {
		t.Errorf("expected default caption options, got %+v", opts)
	}

	// Stream limits defaults
	if cfg.StreamLimits.MaxAudioBytes != 5*1024*1024 {
		t.Errorf("expected default max audio bytes 5MB, got %d", cfg.StreamLimits.MaxAudioBytes)
	}
	if cfg.StreamLimits.MaxDuration != 5*time.Minute {
		t.Errorf("expected default max duration 5m, got %v", cfg.StreamLimits.MaxDuration)
	}
	if cfg.StreamLimits.MaxPartials != 500 {
		t.Errorf("expected default max partials 500, got %d", cfg.StreamLimits.MaxPartials)
	}

	// Kafka defaults
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.Principal != "svc-speech-captioning" {
		t.Errorf("expected Kafka principal to follow the service, got %s", cfg.Kafka.Principal)
	}

	// Observability defaults
	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	t.Setenv("GRPC_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STT_PROVIDER", "google")
	t.Setenv("STT_LANGUAGE_CODE", "es-ES")
	t.Setenv("STT_SAMPLE_RATE_HZ", "16000")
	t.Setenv("STT_INTERIM_RESULTS", "false")
	t.Setenv("STT_AUDIO_ENCODING", "MULAW")
	t.Setenv("STT_PHRASES", "WebVTT, SubRip ,,")
	t.Setenv("STT_MIN_STABILITY", "0.6")
	t.Setenv("CAPTION_MAX_LENGTH", "40")
	t.Setenv("CAPTION_MAX_LINES", "2")
	t.Setenv("CAPTION_SRT", "true")
	t.Setenv("CAPTION_MODE", "realtime")
	t.Setenv("CAPTION_REALTIME_DELAY", "3")
	t.Setenv("STREAM_MAX_AUDIO_BYTES", "10485760")
	t.Setenv("STREAM_MAX_DURATION", "10m")
	t.Setenv("STREAM_MAX_PARTIALS", "1000")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.GRPCPort)
	}
	if cfg.STT.Provider != "google" {
		t.Errorf("expected STT provider 'google', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "es-ES" {
		t.Errorf("expected language 'es-ES', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected sample rate 16000, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.STT.InterimResults != false {
		t.Errorf("expected interim results false, got %v", cfg.STT.InterimResults)
	}
	if cfg.STT.AudioEncoding != "MULAW" {
		t.Errorf("expected encoding 'MULAW', got %s", cfg.STT.AudioEncoding)
	}
	if len(cfg.STT.Phrases) != 2 || cfg.STT.Phrases[1] != "SubRip" {
		t.Errorf("expected trimmed phrases, got %v", cfg.STT.Phrases)
	}
	if cfg.STT.MinStability != 0.6 {
		t.Errorf("expected min stability 0.6, got %v", cfg.STT.MinStability)
	}

	want := caption.Options{
		MaxCaptionLength: 40,
		MaxCaptionLines:  2,
		SubRip:           true,
		Mode:             caption.ModeRealTime,
		RealTimeDelay:    3 * time.Second,
	}
	if got := cfg.CaptionOptions(); got != want {
		t.Errorf("caption options = %+v, want %+v", got, want)
	}

	if cfg.StreamLimits.MaxAudioBytes != 10485760 {
		t.Errorf("expected max audio bytes 10485760, got %d", cfg.StreamLimits.MaxAudioBytes)
	}
	if cfg.StreamLimits.MaxDuration != 10*time.Minute {
		t.Errorf("expected max duration 10m, got %v", cfg.StreamLimits.MaxDuration)
	}
	if cfg.StreamLimits.MaxPartials != 1000 {
		t.Errorf("expected max partials 1000, got %d", cfg.StreamLimits.MaxPartials)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("expected 2 brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected custom values to validate, got %v", err)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STT_SAMPLE_RATE_HZ", "fast")
	t.Setenv("STT_INTERIM_RESULTS", "maybe")
	t.Setenv("STREAM_MAX_DURATION", "forever")

	cfg := Load()

	if cfg.STT.SampleRateHz != 8000 {
		t.Errorf("expected fallback sample rate 8000, got %d", cfg.STT.SampleRateHz)
	}
	if !cfg.STT.InterimResults {
		t.Error("expected fallback interim results true")
	}
	if cfg.StreamLimits.MaxDuration != 5*time.Minute {
		t.Errorf("expected fallback duration 5m, got %v", cfg.StreamLimits.MaxDuration)
	}
}

func TestConfiguration_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Configuration)
		wantField string
	}{
		{"unknown mode", func(c *Configuration) { c.Caption.Mode = "live" }, "captioningMode"},
		{"short lines", func(c *Configuration) { c.Caption.MaxCaptionLength = 10 }, "maxCaptionLength"},
		{"fractional delay", func(c *Configuration) { c.Caption.RealTimeDelay = 1500 * time.Millisecond }, "realTimeDelaySeconds"},
		{"unknown provider", func(c *Configuration) { c.STT.Provider = "azure" }, "STT_PROVIDER"},
		{"replay without file", func(c *Configuration) { c.STT.Provider = "replay" }, "STT_REPLAY_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			cfg.STT.Provider = "mock"
			cfg.Caption = CaptionConfig{Mode: "offline", MaxCaptionLines: 3}
			tt.mutate(cfg)

			var cfgErr *caption.ConfigurationError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != tt.wantField {
				t.Errorf("expected ConfigurationError on %s, got %v", tt.wantField, err)
			}
		})
	}
}
