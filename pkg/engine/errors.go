package engine

import "errors"

// Sentinel errors for the turn failure taxonomy. Anything else wrapping
// out of a turn is an internal error.
var (
	// ErrNoSpeech means the transcript came back empty. The state is
	// unchanged; the caller should prompt the user to retry the turn.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrTranscriber means the transcription collaborator failed. The
	// state is unchanged and the same turn can be retried.
	ErrTranscriber = errors.New("transcription unavailable")

	// ErrBadState means the client-supplied state did not parse or
	// names an unknown variant.
	ErrBadState = errors.New("invalid session state")
)
