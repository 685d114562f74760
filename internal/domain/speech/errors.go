package speech

import (
	"context"
	"errors"
)

var (
	// ErrSynthesisCanceled is reported when an utterance was stopped on purpose.
	// It is never shown to the user and never triggers a fallback.
	ErrSynthesisCanceled = errors.New("speech synthesis canceled")
	// ErrSynthesisUnavailable is returned when no on-device engine exists.
	ErrSynthesisUnavailable = errors.New("speech synthesis unavailable")
	// ErrSynthesisFailed is reported for any other local engine failure.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	// ErrChunkPlaybackFailed is returned when a remote chunk could not be fetched, decoded or played.
	ErrChunkPlaybackFailed = errors.New("chunk playback failed")
	// ErrPermissionBlocked is returned when the host refuses audio output.
	ErrPermissionBlocked = errors.New("audio playback blocked")
	// ErrNetwork marks transport failures talking to the remote speech service.
	ErrNetwork = errors.New("speech service unreachable")
)

// IsCanceled reports whether err means the attempt was stopped intentionally.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrSynthesisCanceled) || errors.Is(err, context.Canceled)
}
