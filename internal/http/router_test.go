package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-speech-captioning-service/internal/app"
	"ai-speech-captioning-service/internal/config"
)

func newTestRouter(t *testing.T, ready bool) http.Handler {
	t.Helper()
	application := app.New(config.Load(), nil)
	if ready {
		application.Start()
	}
	return NewRouter(application)
}

func post(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const helloWorld = `{"results":[
	{"text":"hello","offsetTicks":0,"durationTicks":4000000,"isFinal":false},
	{"text":"hello world","offsetTicks":0,"durationTicks":8000000,"isFinal":true}
]}`

func TestCaptions_WebVTT(t *testing.T) {
	rec := post(t, newTestRouter(t, true), "/v1/captions", helloWorld)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vtt") {
		t.Errorf("unexpected content type %s", ct)
	}
	want := "WEBVTT\n\n00:00:00.000 --> 00:00:00.800\nhello world\n\n"
	if rec.Body.String() != want {
		t.Errorf("unexpected body:\n%q\nwant:\n%q", rec.Body.String(), want)
	}
}

func TestCaptions_SubRipFormatParameter(t *testing.T) {
	rec := post(t, newTestRouter(t, true), "/v1/captions?format=srt", helloWorld)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/x-subrip") {
		t.Errorf("unexpected content type %s", ct)
	}
	want := "1\n00:00:00,000 --> 00:00:00,800\nhello world\n\n"
	if rec.Body.String() != want {
		t.Errorf("unexpected body:\n%q\nwant:\n%q", rec.Body.String(), want)
	}
}

func TestCaptions_EmptyBatchIsValidDocument(t *testing.T) {
	rec := post(t, newTestRouter(t, true), "/v1/captions", `{"results":[]}`)

	if rec.Code != http.StatusOK || rec.Body.String() != "WEBVTT\n\n" {
		t.Errorf("expected an empty WebVTT document, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestCaptions_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		field  string
	}{
		{"malformed json", "/v1/captions", `{"results":`, ""},
		{"unknown field", "/v1/captions", `{"resultz":[]}`, ""},
		{"unknown format", "/v1/captions?format=ass", `{"results":[]}`, "format"},
		{"invalid options", "/v1/captions", `{"options":{"maxCaptionLength":5},"results":[]}`, "maxCaptionLength"},
		{"negative offset", "/v1/captions", `{"results":[{"text":"x","offsetTicks":-1,"durationTicks":1,"isFinal":true}]}`, "offsetTicks"},
	}

	h := newTestRouter(t, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.target, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("expected a JSON error body: %v", err)
			}
			if body.Error == "" || body.Field != tt.field {
				t.Errorf("unexpected error body %+v", body)
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	notReady := newTestRouter(t, false)
	rec := httptest.NewRecorder()
	notReady.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/readiness", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before start, got %d", rec.Code)
	}

	ready := newTestRouter(t, true)
	for _, path := range []string{"/v1/liveness", "/v1/readiness", "/metrics"} {
		rec := httptest.NewRecorder()
		ready.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
