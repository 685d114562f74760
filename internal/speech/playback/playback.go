// Package playback owns the speaking state of the conversation. It routes
// each message to the local synthesizer or the remote player, falls back
// between them on failure and tells observers which message is being read.
package playback

import (
	"context"
	"time"

	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/local"
)

// LocalSpeaker speaks on the device. See local.Adapter.
type LocalSpeaker interface {
	Speak(ctx context.Context, u local.Utterance, sink local.EventSink)
	Cancel()
}

// RemotePlayer plays a request through the remote service. See
// remote.ChunkedPlayer.
type RemotePlayer interface {
	Play(ctx context.Context, req speech.Request, onStart func()) error
	Stop()
}

// VoiceResolver picks a device voice for a language. See voice.Catalogue.
type VoiceResolver interface {
	Resolve(language string) (speech.Voice, bool)
}

// Notifier shows transient notices to the user.
type Notifier interface {
	Notify(n speech.Notification)
}

// Recorder receives playback measurements. See metrics.Metrics.
type Recorder interface {
	AttemptStarted(m speech.Mechanism)
	Fallback(from, to speech.Mechanism)
	AttemptFinished(m speech.Mechanism, outcome Outcome, elapsed time.Duration)
	SetSpeaking(speaking bool)
}

// Outcome is how an attempt ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeFailed    Outcome = "failed"
	// OutcomeCanceled: the mechanism reported a cancellation nobody asked for.
	OutcomeCanceled Outcome = "canceled"
)

// StateChange is delivered to listeners whenever the speaking message changes.
type StateChange struct {
	SpeakingIndex int              `json:"speaking_index"`
	Mechanism     speech.Mechanism `json:"mechanism"`
}

// Speaking reports whether a message is being read.
func (s StateChange) Speaking() bool {
	return s.SpeakingIndex != speech.NoIndex
}

// Listener observes state changes. It runs outside the coordinator's lock
// but must not call Speak, Stop or Toggle synchronously.
type Listener func(StateChange)

// Status is a snapshot of the coordinator.
type Status struct {
	SpeakingIndex int              `json:"speaking_index"`
	Mechanism     speech.Mechanism `json:"mechanism"`
	// PendingIndex is the message of an attempt that has not produced sound
	// yet, or speech.NoIndex.
	PendingIndex int    `json:"pending_index"`
	Language     string `json:"language"`
	AutoSpeak    bool   `json:"auto_speak"`
	Supported    bool   `json:"supported"`
}

type Config struct {
	Language       string
	AutoSpeak      bool
	AutoSpeakDelay time.Duration
	// FallbackRate is the local speaking rate used after the remote service failed.
	FallbackRate float64
}

const (
	DefaultAutoSpeakDelay = 300 * time.Millisecond
	DefaultFallbackRate   = 0.75
)

func DefaultConfig() Config {
	return Config{
		Language:       speech.LanguageEnglish,
		AutoSpeak:      true,
		AutoSpeakDelay: DefaultAutoSpeakDelay,
		FallbackRate:   DefaultFallbackRate,
	}
}

type noopRecorder struct{}

func (noopRecorder) AttemptStarted(speech.Mechanism)                           {}
func (noopRecorder) Fallback(_, _ speech.Mechanism)                            {}
func (noopRecorder) AttemptFinished(speech.Mechanism, Outcome, time.Duration) {}
func (noopRecorder) SetSpeaking(bool)                                          {}

type noopNotifier struct{}

func (noopNotifier) Notify(speech.Notification) {}

type emptyResolver struct{}

func (emptyResolver) Resolve(string) (speech.Voice, bool) { return speech.Voice{}, false }
