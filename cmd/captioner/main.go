// Command captioner turns a WAV file or a recording of recognition results
// into a WebVTT or SRT caption file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"ai-speech-captioning-service/internal/audiofile"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/service/audio"
	"ai-speech-captioning-service/internal/service/caption"
	"ai-speech-captioning-service/internal/service/captioning"
	"ai-speech-captioning-service/internal/service/stt"
	"ai-speech-captioning-service/internal/service/stt/google"
	"ai-speech-captioning-service/internal/service/stt/mock"
	"ai-speech-captioning-service/internal/service/stt/replay"
	"ai-speech-captioning-service/internal/sink"
)

// frameDuration is the audio sent to the recognizer per request.
const frameDuration = 100 * time.Millisecond

// CLI is the captioner command line.
type CLI struct {
	Input   string `short:"i" help:"WAV file to recognize." type:"existingfile" xor:"source"`
	Results string `short:"r" help:"JSON Lines recognition results to caption instead of audio." type:"existingfile" xor:"source"`
	Output  string `short:"o" help:"Caption file to write. Defaults to stdout."`

	SRT           bool          `help:"Write SubRip (SRT) instead of WebVTT."`
	MaxLineLength int           `name:"max-line-length" help:"Maximum characters per caption line. 0 disables chunking." default:"0"`
	Lines         int           `help:"Maximum lines per caption." default:"3"`
	Realtime      bool          `help:"Also caption in-progress results."`
	Delay         time.Duration `help:"Extra display delay for real-time captions, in whole seconds." default:"0s"`
	Pace          bool          `help:"Feed input at its natural speed instead of as fast as possible."`

	Provider    string   `help:"Speech recognizer for --input." enum:"mock,google" default:"mock" env:"STT_PROVIDER"`
	Language    string   `help:"Recognition language." default:"en-US" env:"STT_LANGUAGE_CODE"`
	Profanity   bool     `help:"Mask profanity."`
	Phrases     []string `help:"Phrase hints for the recognizer." sep:","`
	Stability   float32  `help:"Drop in-progress results below this stability (0-1)."`
	TagLanguage bool     `name:"tag-language" help:"Prefix cues with the recognized language."`

	Quiet    bool   `short:"q" help:"Only log warnings and errors."`
	LogLevel string `name:"log-level" help:"Log level." enum:"trace,debug,info,warn,error" default:"info"`
}

func main() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("captioner"),
		kong.Description("Generate WebVTT or SRT captions from speech audio or recognition results."),
		kong.UsageOnError(),
	)

	level := cli.LogLevel
	if cli.Quiet {
		level = "warn"
	}
	logging.Init(logging.Config{Level: level, Format: "console", TimeFormat: time.RFC3339, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.FatalIfErrorf(cli.Run(ctx, os.Stdout))
}

// Options maps the flags onto caption options.
func (c *CLI) Options() caption.Options {
	opts := caption.Options{
		MaxCaptionLength: c.MaxLineLength,
		MaxCaptionLines:  c.Lines,
		SubRip:           c.SRT,
		Mode:             caption.ModeOffline,
	}
	if c.Realtime {
		opts.Mode = caption.ModeRealTime
		opts.RealTimeDelay = c.Delay
	}
	return opts
}

// Run captions the input and writes the document to the output file, or to
// stdout when no output file is set.
func (c *CLI) Run(ctx context.Context, stdout io.Writer) error {
	if c.Input == "" && c.Results == "" {
		return errors.New("one of --input or --results is required")
	}
	opts := c.Options()
	if err := opts.Validate(); err != nil {
		return err
	}

	out := stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	writer := sink.NewWriter(out, opts.SubRip)
	var target captioning.Sink = writer
	var delayed *sink.Delayed
	if opts.RealTimeDelay > 0 {
		delayed = sink.NewDelayed(writer, opts.RealTimeDelay)
		target = delayed
	}

	session, err := captioning.NewSession(uuid.NewString(), "", opts, target)
	if err != nil {
		return err
	}

	var report captioning.Report
	if c.Results != "" {
		report, err = c.runResults(ctx, session)
	} else {
		report, err = c.runAudio(ctx, session)
	}
	if delayed != nil {
		if cerr := delayed.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return err
	}
	if err := writer.Finish(); err != nil {
		return err
	}

	log.Info().
		Str("sessionId", report.SessionId).
		Str("state", report.State.String()).
		Int("cues", report.Emitted).
		Int("suppressed", report.Suppressed).
		Dur("end", caption.TicksToDuration(report.EndTicks)).
		Msg("Captions written")
	return nil
}

func (c *CLI) runResults(ctx context.Context, session *captioning.Session) (captioning.Report, error) {
	records, err := replay.Open(c.Results)
	if err != nil {
		return captioning.Report{}, fmt.Errorf("load %s: %w", c.Results, err)
	}
	log.Info().Str("file", c.Results).Int("records", len(records)).Msg("Replaying recognition results")
	return captioning.Run(ctx, replay.New(replay.Config{Pace: c.Pace}, records), session)
}

func (c *CLI) runAudio(ctx context.Context, session *captioning.Session) (captioning.Report, error) {
	pcm, err := audiofile.ReadFile(c.Input)
	if err != nil {
		return captioning.Report{}, fmt.Errorf("read %s: %w", c.Input, err)
	}
	log.Info().
		Str("file", c.Input).
		Int("sampleRate", pcm.SampleRate).
		Dur("duration", pcm.Duration()).
		Msg("Recognizing audio")

	adapter, err := c.recognizer(ctx, pcm.SampleRate)
	if err != nil {
		return captioning.Report{}, err
	}

	// A local file has no stream limits.
	handler := audio.NewHandlerWithConfig(adapter, session, nil, audio.Config{Provider: c.Provider})
	if err := handler.Start(ctx); err != nil {
		session.Cancel(err)
		return session.Report(), fmt.Errorf("start recognizer: %w", err)
	}

	for _, frame := range pcm.Frames(frameDuration) {
		if session.State().IsTerminal() {
			break
		}
		if err := handler.SendAudio(ctx, frame); err != nil {
			session.Cancel(err)
			break
		}
		if c.Pace {
			select {
			case <-time.After(frameDuration):
			case <-ctx.Done():
			}
		}
	}
	if err := handler.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close recognizer")
	}
	return handler.Wait(ctx)
}

func (c *CLI) recognizer(ctx context.Context, sampleRate int) (stt.Adapter, error) {
	switch c.Provider {
	case "google":
		cfg := google.DefaultConfig()
		cfg.LanguageCode = c.Language
		cfg.SampleRateHz = int32(sampleRate)
		cfg.InterimResults = c.Realtime
		cfg.ProfanityFilter = c.Profanity
		cfg.Phrases = c.Phrases
		cfg.MinStability = c.Stability
		cfg.TagLanguage = c.TagLanguage
		return google.New(ctx, cfg)
	default:
		cfg := mock.DefaultConfig()
		cfg.SampleRateHz = sampleRate
		return mock.NewWithUtterances(cfg, mock.DefaultUtterances), nil
	}
}
