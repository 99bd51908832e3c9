package grpcapi

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-speech-captioning-service/internal/events"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/service/audio"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/captioning"
	"ai-speech-captioning-service/internal/service/stt"
	"ai-speech-captioning-service/internal/sink"
)

// AdapterFactory creates the recognizer for one stream.
type AdapterFactory func(ctx context.Context) (stt.Adapter, error)

// Publisher publishes cues and final transcripts. *events.Publisher implements it.
type Publisher interface {
	events.CuePublisher
	audio.TranscriptPublisher
}

// ServerConfig holds the defaults applied to every stream.
type ServerConfig struct {
	Defaults caption.Options
	Limits   audio.StreamLimits
	Provider string
}

// Server implements CaptionStreamServer.
type Server struct {
	publisher  Publisher
	newAdapter AdapterFactory
	cfg        ServerConfig
	logger     zerolog.Logger
}

// Register creates a Server and registers it with g. publisher may be nil.
func Register(g grpc.ServiceRegistrar, publisher Publisher, newAdapter AdapterFactory, cfg ServerConfig) *Server {
	s := &Server{
		publisher:  publisher,
		newAdapter: newAdapter,
		cfg:        cfg,
		logger:     logging.WithComponent("grpc-caption-stream"),
	}
	RegisterCaptionStreamServer(g, s)
	return s
}

// StreamCaptions runs one captioning session over a client stream.
func (s *Server) StreamCaptions(stream CaptionStream_StreamCaptionsServer) error {
	ctx := stream.Context()

	first, err := stream.Recv()
	if err != nil {
		return err
	}
	if first.Config == nil {
		return status.Error(codes.InvalidArgument, "first message must carry a config")
	}

	sessionId := first.Config.SessionId
	if sessionId == "" {
		sessionId = uuid.NewString()
	}
	tenantId := first.Config.TenantId
	opts := s.cfg.Defaults
	if first.Config.Options != nil {
		opts = *first.Config.Options
	}

	// Cues go back to the client, after the display delay if one is set.
	var display captioning.Sink = captioning.SinkFunc(func(c captioning.Cue) error {
		return stream.Send(&StreamResponse{Cue: cueMessage(c, opts.SubRip)})
	})
	var delayed *sink.Delayed
	if opts.RealTimeDelay > 0 {
		delayed = sink.NewDelayed(display, opts.RealTimeDelay)
		// Close is idempotent; this covers the early returns.
		defer delayed.Close()
		display = delayed
	}
	sinks := []captioning.Sink{display}
	if s.publisher != nil {
		sinks = append(sinks, events.NewCueSink(s.publisher, tenantId, opts.SubRip))
	}

	session, err := captioning.NewSession(sessionId, tenantId, opts, sink.Multi(sinks...))
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	logger := logging.WithSession(sessionId, tenantId)

	if err := stream.Send(&StreamResponse{Session: &SessionInfo{
		SessionId: sessionId,
		Format:    formatName(opts.SubRip),
		Header:    caption.Header(opts.SubRip),
	}}); err != nil {
		return err
	}

	adapter, err := s.newAdapter(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create STT adapter")
		return status.Error(codes.Unavailable, "speech recognizer unavailable")
	}

	handler := audio.NewHandlerWithConfig(adapter, session, s.publisher, audio.Config{
		TenantId: tenantId,
		Provider: s.cfg.Provider,
		Limits:   s.cfg.Limits,
	})
	if err := handler.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start STT session")
		return status.Error(codes.Unavailable, "speech recognizer unavailable")
	}

	logger.Info().
		Str("mode", opts.Mode.String()).
		Str("format", formatName(opts.SubRip)).
		Int("maxCaptionLength", opts.MaxCaptionLength).
		Msg("Caption stream started")

	var sendErr error
	for {
		req, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			session.Cancel(err)
			break
		}
		if len(req.Audio) == 0 {
			continue
		}
		if err := handler.SendAudio(ctx, req.Audio); err != nil {
			sendErr = err
			break
		}
	}

	if err := handler.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close STT session")
	}
	report, waitErr := handler.Wait(ctx)
	if delayed != nil {
		if err := delayed.Close(); err != nil && waitErr == nil {
			waitErr = err
		}
	}
	if ctx.Err() != nil {
		return status.FromContextError(ctx.Err()).Err()
	}

	if err := stream.Send(&StreamResponse{Report: reportMessage(report, waitErr)}); err != nil {
		return err
	}
	return streamStatus(sendErr, waitErr)
}

func streamStatus(sendErr, waitErr error) error {
	switch {
	case errors.Is(sendErr, audio.ErrLimitExceeded):
		return status.Error(codes.ResourceExhausted, sendErr.Error())
	case sendErr != nil:
		return status.Error(codes.Unavailable, sendErr.Error())
	case errors.Is(waitErr, captioning.ErrCanceled):
		return status.Error(codes.Aborted, waitErr.Error())
	case waitErr != nil:
		return status.Error(codes.Internal, waitErr.Error())
	}
	return nil
}

func cueMessage(c captioning.Cue, subRip bool) *CueMessage {
	return &CueMessage{
		UtteranceId: c.UtteranceId,
		Sequence:    c.Sequence,
		Language:    c.Language,
		Text:        c.Text,
		BeginMs:     c.BeginTicks / caption.TicksPerMillisecond,
		EndMs:       c.EndTicks / caption.TicksPerMillisecond,
		Formatted:   caption.Format(c.Cue, subRip),
	}
}

func reportMessage(r captioning.Report, err error) *ReportMessage {
	m := &ReportMessage{
		State:       r.State.String(),
		Recognizing: r.Recognizing,
		Recognized:  r.Recognized,
		Emitted:     r.Emitted,
		Suppressed:  r.Suppressed,
	}
	if err != nil {
		m.Error = err.Error()
	}
	return m
}

func formatName(subRip bool) string {
	if subRip {
		return "srt"
	}
	return "vtt"
}
