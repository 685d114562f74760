package speech

import (
	"errors"
	"fmt"
)

// NotificationKind classifies a user-facing playback notice.
type NotificationKind string

const (
	// NotifyUnsupported: no mechanism could read the language at all.
	NotifyUnsupported NotificationKind = "unsupported"
	// NotifyBlocked: the device refused audio output.
	NotifyBlocked NotificationKind = "blocked"
	NotifyNetwork NotificationKind = "network"
	// NotifyFailed: any other terminal failure.
	NotifyFailed NotificationKind = "failed"
)

// Notification is a transient message for the user.
type Notification struct {
	Kind         NotificationKind `json:"kind"`
	Message      string           `json:"message"`
	MessageIndex int              `json:"message_index"`
	Language     string           `json:"language"`
}

// UnsupportedNotice is raised when nothing can speak the language.
func UnsupportedNotice(language string, index int) Notification {
	return Notification{
		Kind:         NotifyUnsupported,
		Message:      fmt.Sprintf("Cannot play audio in %s. Your device may not support text-to-speech for this language.", DisplayName(language)),
		MessageIndex: index,
		Language:     language,
	}
}

// FailureNotice classifies a terminal playback error. err must not be a
// cancellation.
func FailureNotice(err error, mechanism Mechanism, language string, index int) Notification {
	n := Notification{MessageIndex: index, Language: language}

	switch {
	case errors.Is(err, ErrPermissionBlocked):
		n.Kind = NotifyBlocked
		n.Message = "Speech blocked by the device. Please allow audio playback and try the speaker control manually."
	case errors.Is(err, ErrNetwork):
		n.Kind = NotifyNetwork
		n.Message = "Network error. Please check your internet connection."
	case mechanism == MechanismRemote:
		n.Kind = NotifyFailed
		n.Message = fmt.Sprintf("Cannot play audio in %s. Please try again later.", DisplayName(language))
	default:
		n.Kind = NotifyFailed
		n.Message = fmt.Sprintf("Cannot speak in %s. Try turning OFF auto-speak and use the speaker control manually.", DisplayName(language))
	}

	return n
}
