package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"ai-speech-captioning-service/internal/models"
)

// scriptedReader returns its messages, then blocks until the context ends.
type scriptedReader struct {
	messages []kafka.Message
	errs     []error
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		return msg, nil
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func message(t *testing.T, v any) kafka.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return kafka.Message{Value: b}
}

func TestConsume_ForwardsCaptionEvents(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &scriptedReader{messages: []kafka.Message{
		message(t, models.CueEvent{EventType: models.EventTypeCue, UtteranceID: "s-utt-1", Text: "hello", EndMs: 800}),
		{Value: []byte("not json")},
		message(t, map[string]string{"eventType": "interaction.transcript.partial", "text": "ignored"}),
		message(t, models.TranscriptFinal{EventType: models.EventTypeTranscript, UtteranceID: "s-utt-1", Text: "hello world"}),
	}}
	go Consume(ctx, hub, reader, "interaction.caption.cue")

	var got []Event
	for len(got) < 2 {
		select {
		case ev := <-hub.broadcast:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %+v", got)
		}
	}
	if got[0].Text != "hello" || got[0].EndMs != 800 || got[1].Text != "hello world" {
		t.Errorf("unexpected events %+v", got)
	}
	select {
	case ev := <-hub.broadcast:
		t.Errorf("unexpected extra event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConsume_StopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	reader := &scriptedReader{errs: []error{errors.New("broker unavailable")}}

	done := make(chan struct{})
	go func() {
		Consume(ctx, hub, reader, "topic")
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestHub_DeliversToWebSocketClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(ctx, Event{EventType: models.EventTypeCue, Text: "hello", Formatted: "00:00:00.000 --> 00:00:00.800\nhello\n\n"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Text != "hello" || ev.EventType != models.EventTypeCue {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestHandler_ServesIndex(t *testing.T) {
	srv := httptest.NewServer(Handler(NewHub()))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestHub_ConnectAfterShutdownIsClosed(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	select {
	case <-hub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	srv := httptest.NewServer(Handler(hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var netErr net.Error
	if err == nil || (errors.As(err, &netErr) && netErr.Timeout()) {
		t.Fatalf("expected the server to close the connection, got %v", err)
	}
	if hub.Clients() != 0 {
		t.Errorf("expected no clients after shutdown, got %d", hub.Clients())
	}
}
