package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ai-speech-captioning-service/internal/app"
	"ai-speech-captioning-service/internal/models"
	"ai-speech-captioning-service/internal/observability/logging"
	"ai-speech-captioning-service/internal/schema"
	"ai-speech-captioning-service/internal/service/caption"
)

// maxBodyBytes bounds a batch caption request.
const maxBodyBytes = 8 << 20

// CaptionRequest is the body of POST /v1/captions.
// Options missing from the request fall back to the service defaults.
type CaptionRequest struct {
	Options *caption.Options           `json:"options,omitempty"`
	Results []models.RecognitionResult `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/captions", captionsHandler(application))
	})

	return r
}

// captionsHandler renders a batch of recognition results as a caption document.
// The format query parameter (vtt or srt) overrides the SubRip option.
func captionsHandler(application *app.Application) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logging.WithComponent("http-captions").With().
			Str("requestId", middleware.GetReqID(r.Context())).
			Logger()

		var req CaptionRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errorResponse{Error: "malformed request: " + err.Error()})
			return
		}

		opts := application.Cfg.CaptionOptions()
		if req.Options != nil {
			opts = *req.Options
		}
		switch r.URL.Query().Get("format") {
		case "":
		case "vtt":
			opts.SubRip = false
		case "srt":
			opts.SubRip = true
		default:
			writeError(w, http.StatusBadRequest, errorResponse{Error: "format must be vtt or srt", Field: "format"})
			return
		}

		var body bytes.Buffer
		report, err := application.Caption(r.Context(), r.Header.Get("X-Tenant-Id"), opts, req.Results, &body)
		if err != nil {
			var cfgErr *caption.ConfigurationError
			var valErr *schema.ValidationError
			switch {
			case errors.As(err, &cfgErr):
				writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: cfgErr.Field})
			case errors.As(err, &valErr):
				writeError(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: valErr.Field})
			default:
				logger.Error().Err(err).Msg("Batch captioning failed")
				writeError(w, http.StatusInternalServerError, errorResponse{Error: "captioning failed"})
			}
			return
		}

		logger.Info().
			Str("sessionId", report.SessionId).
			Int("results", len(req.Results)).
			Int("cues", report.Emitted).
			Msg("Batch captions rendered")

		if opts.SubRip {
			w.Header().Set("Content-Type", "application/x-subrip; charset=utf-8")
		} else {
			w.Header().Set("Content-Type", "text/vtt; charset=utf-8")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body.Bytes())
	}
}

func writeError(w http.ResponseWriter, code int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
