package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "ai-speech-captioning-service/internal/api/grpc"
	"ai-speech-captioning-service/internal/app"
	"ai-speech-captioning-service/internal/config"
	"ai-speech-captioning-service/internal/events"
	httpapi "ai-speech-captioning-service/internal/http"
	"ai-speech-captioning-service/internal/observability"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/observability/metrics"
	"ai-speech-captioning-service/internal/service/audio"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Create Kafka publisher with separate topics for cues and final transcripts
	publisher := events.New(&events.Config{
		Enabled:          cfg.Kafka.Enabled,
		Brokers:          cfg.Kafka.Brokers,
		TopicCues:        cfg.Kafka.TopicCues,
		TopicTranscripts: cfg.Kafka.TopicTranscripts,
		Principal:        cfg.Kafka.Principal,
	})
	defer publisher.Close()

	application := app.New(cfg, publisher)

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen")
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(metrics.DefaultMetrics)),
	)

	// Register gRPC health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	// Register application services
	grpcapi.Register(server, publisher, application.NewRecognizer, grpcapi.ServerConfig{
		Defaults: cfg.CaptionOptions(),
		Limits: audio.StreamLimits{
			MaxAudioBytes: cfg.StreamLimits.MaxAudioBytes,
			MaxDuration:   cfg.StreamLimits.MaxDuration,
			MaxPartials:   cfg.StreamLimits.MaxPartials,
		},
		Provider: cfg.STT.Provider,
	})

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(server)

	httpServer := observability.NewServer(":"+cfg.Service.HTTPPort, httpapi.NewRouter(application))
	httpServer.Start()

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Application start failed")
	}

	go func() {
		log.Info().Str("port", cfg.Service.GRPCPort).Msg("Speech Captioning Service started")
		if err := server.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("gRPC serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	application.Shutdown()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown failed")
	}
	server.GracefulStop()
}
