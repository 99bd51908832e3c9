// Command captionviewer displays caption cues and final transcripts from Kafka
// in the browser as they are published.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/viewer"
)

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicCues := flag.String("topic-cues", "interaction.caption.cue", "Caption cue topic")
	topicTranscripts := flag.String("topic-transcripts", "interaction.transcript.final", "Final transcript topic")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := viewer.NewHub()
	go hub.Run(ctx)

	for _, topic := range []string{*topicCues, *topicTranscripts} {
		reader := viewer.NewReader(ctx, strings.Split(*brokers, ","), topic)
		defer reader.Close()
		go viewer.Consume(ctx, hub, reader, topic)
	}

	server := &http.Server{Addr: ":" + *port, Handler: viewer.Handler(hub)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("url", "http://localhost:"+*port).
		Str("brokers", *brokers).
		Strs("topics", []string{*topicCues, *topicTranscripts}).
		Msg("Caption Viewer starting")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server error")
	}
}
