package captioning

import (
	"context"
	"fmt"

	"ai-speech-captioning-service/internal/service/stt"
)

// Run drives a session from a recognizer that needs no audio, such as a
// replay, and waits for it to end.
func Run(ctx context.Context, adapter stt.Adapter, s *Session) (Report, error) {
	if err := adapter.Start(ctx, s); err != nil {
		s.Cancel(err)
		return s.Report(), fmt.Errorf("start recognizer: %w", err)
	}
	if err := adapter.Close(); err != nil {
		s.Cancel(err)
	}
	return s.Wait(ctx)
}
