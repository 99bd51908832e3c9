// Command audioclient streams a WAV file to the caption service and prints the
// cues it returns.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcapi "ai-speech-captioning-service/internal/api/grpc"
	"ai-speech-captioning-service/internal/audiofile"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/service/caption"
)

// Stream audio in 100ms chunks to simulate real-time streaming
const chunkInterval = 100 * time.Millisecond

func main() {
	audioFile := flag.String("audio", "../../testdata/sample-8khz.wav", "Path to WAV file")
	serverAddr := flag.String("server", "localhost:50051", "gRPC server address")
	sessionId := flag.String("session", "test-audio-"+time.Now().Format("150405"), "Session ID")
	tenantId := flag.String("tenant", "tenant-demo", "Tenant ID")
	maxLength := flag.Int("max-line-length", 0, "Maximum characters per caption line (0 disables chunking)")
	lines := flag.Int("lines", caption.DefaultCaptionLines, "Maximum lines per caption")
	srt := flag.Bool("srt", false, "Request SRT instead of WebVTT")
	realtime := flag.Bool("realtime", false, "Emit captions for in-progress results")
	fast := flag.Bool("fast", false, "Send audio as fast as possible")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", TimeFormat: time.RFC3339, Output: os.Stderr})

	audio, err := audiofile.ReadFile(*audioFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", *audioFile).Msg("Failed to read audio file")
	}
	log.Info().
		Int("sampleRate", audio.SampleRate).
		Dur("duration", audio.Duration()).
		Msg("Loaded audio")
	if audio.SampleRate != 8000 {
		log.Warn().Int("sampleRate", audio.SampleRate).Msg("Server recognizers default to 8000 Hz")
	}

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer conn.Close()

	client := grpcapi.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), audio.Duration()+60*time.Second)
	defer cancel()

	stream, err := client.StreamCaptions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create stream")
	}

	opts := caption.Options{
		MaxCaptionLength: *maxLength,
		MaxCaptionLines:  *lines,
		SubRip:           *srt,
	}
	if *realtime {
		opts.Mode = caption.ModeRealTime
	}
	if err := stream.Send(&grpcapi.StreamRequest{Config: &grpcapi.StreamConfig{
		SessionId: *sessionId,
		TenantId:  *tenantId,
		Options:   &opts,
	}}); err != nil {
		log.Fatal().Err(err).Msg("Failed to send config")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		receive(stream)
	}()

	frames := audio.Frames(chunkInterval)
	for i, frame := range frames {
		if err := stream.Send(&grpcapi.StreamRequest{Audio: frame}); err != nil {
			log.Error().Err(err).Int("frame", i).Msg("Failed to send frame")
			break
		}
		if !*fast {
			time.Sleep(chunkInterval)
		}
	}
	log.Info().Int("frames", len(frames)).Msg("Finished streaming, waiting for final captions")
	stream.CloseSend()
	<-done
}

func receive(stream grpcapi.CaptionStream_StreamCaptionsClient) {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("Stream ended with error")
			return
		}
		switch {
		case resp.Session != nil:
			log.Info().Str("sessionId", resp.Session.SessionId).Str("format", resp.Session.Format).Msg("Session started")
			fmt.Print(resp.Session.Header)
		case resp.Cue != nil:
			fmt.Print(resp.Cue.Formatted)
		case resp.Report != nil:
			log.Info().
				Str("state", resp.Report.State).
				Int("cues", resp.Report.Emitted).
				Int("suppressed", resp.Report.Suppressed).
				Str("error", resp.Report.Error).
				Msg("Stream completed")
		}
	}
}
