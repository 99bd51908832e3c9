package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-speech-captioning-service/internal/observability/metrics"
)

func TestStreamServerInterceptor_RecordsOutcome(t *testing.T) {
	m := metrics.NewMetricsWith(prometheus.NewRegistry())
	interceptor := StreamServerInterceptor(m)
	info := &grpc.StreamServerInfo{FullMethod: "/ai.speech.captioning.CaptionStreamService/StreamCaptions"}

	ok := func(srv interface{}, ss grpc.ServerStream) error { return nil }
	failed := func(srv interface{}, ss grpc.ServerStream) error {
		return status.Error(codes.Aborted, "canceled")
	}

	if err := interceptor(nil, nil, info, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := interceptor(nil, nil, info, failed); status.Code(err) != codes.Aborted {
		t.Fatalf("expected the handler error, got %v", err)
	}

	if got := testutil.ToFloat64(m.StreamsTotal); got != 2 {
		t.Errorf("expected 2 streams, got %v", got)
	}
	if got := testutil.ToFloat64(m.StreamsActive); got != 0 {
		t.Errorf("expected no active streams, got %v", got)
	}
}

func TestUnaryServerInterceptor_PassesThrough(t *testing.T) {
	interceptor := UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	want := errors.New("boom")

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return req, want
	})
	if resp != "req" || !errors.Is(err, want) {
		t.Errorf("unexpected result %v, %v", resp, err)
	}
}
