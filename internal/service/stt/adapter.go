// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"

	"ai-speech-captioning-service/internal/models"
)

// Callback receives recognition events from the STT provider.
//
// Adapters deliver events from a single goroutine, in the order the provider
// produced them. Receivers may rely on that ordering.
type Callback interface {
	// OnRecognizing is called with an in-progress (non-final) result.
	OnRecognizing(result models.RecognitionResult)

	// OnRecognized is called with a final result for an utterance.
	OnRecognized(result models.RecognitionResult)

	// OnCanceled is called when the provider aborts the session with an error.
	// No further events follow.
	OnCanceled(err error)

	// OnSessionStopped is called once the provider has delivered every result.
	// No further events follow.
	OnSessionStopped()
}

// Adapter defines the interface for STT providers (Google, mock, replay, etc.).
type Adapter interface {
	// Start begins a streaming transcription session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close signals end of audio. Remaining results are still delivered,
	// followed by OnSessionStopped.
	Close() error
}
