// Package voice wraps the speech collaborators: transcription of user
// audio and synthesis of agent replies.
//
// Both collaborators are best-effort from the turn's point of view:
// silence surfaces as an empty transcript, not an error, and a failed
// synthesis degrades the turn to a text-only reply.
package voice

import (
	"context"
)

// Transcriber converts recorded audio to text. Detecting no speech
// returns an empty string with a nil error.
type Transcriber interface {
	// Transcribe converts audio bytes to text.
	Transcribe(ctx context.Context, audio []byte) (string, error)

	// Name returns the provider identifier.
	Name() string
}

// Synthesizer converts reply text to a playable audio handle (a URL the
// client streams from). Implementations retry once with a fallback
// voice before reporting failure.
type Synthesizer interface {
	// Synthesize converts text to an audio handle.
	Synthesize(ctx context.Context, text string) (string, error)

	// Name returns the provider identifier.
	Name() string
}
