package speech

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestLocaleTag(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "en-US"},
		{"hi", "hi-IN"},
		{"te", "te-IN"},
		{" TA ", "ta-IN"},
		{"fr", "en-US"},
		{"", "en-US"},
	}

	for _, tt := range tests {
		if got := LocaleTag(tt.code); got != tt.want {
			t.Errorf("LocaleTag(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestVoiceHasLanguagePrefix(t *testing.T) {
	v := Voice{Name: "Lekha", LanguageTag: "hi_IN"}

	if !v.HasLanguagePrefix("hi") {
		t.Error("expected hi_IN to match hi")
	}
	if !v.HasLanguagePrefix("hi-in") {
		t.Error("expected hi_IN to match hi-in")
	}
	if v.HasLanguagePrefix("te") {
		t.Error("hi_IN should not match te")
	}
	if v.HasLanguagePrefix("") {
		t.Error("empty code should never match")
	}
}

func TestNewRequestNormalizesLanguage(t *testing.T) {
	req := NewRequest("hello", "", 3)
	if req.Language != LanguageEnglish {
		t.Errorf("Language = %q, want en", req.Language)
	}
	if !req.IsEnglish() {
		t.Error("IsEnglish() = false")
	}
	if req.ID == "" {
		t.Error("ID should be set")
	}
	if req.MessageIndex != 3 {
		t.Errorf("MessageIndex = %d, want 3", req.MessageIndex)
	}
}

func TestIsCanceled(t *testing.T) {
	if !IsCanceled(fmt.Errorf("espeak: %w", ErrSynthesisCanceled)) {
		t.Error("wrapped ErrSynthesisCanceled should be canceled")
	}
	if !IsCanceled(context.Canceled) {
		t.Error("context.Canceled should be canceled")
	}
	if IsCanceled(errors.Join(ErrSynthesisFailed, errors.New("exit 1"))) {
		t.Error("synthesis failure is not a cancel")
	}
}

func TestFailureNotice(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		mechanism Mechanism
		wantKind  NotificationKind
		wantMsg   string
	}{
		{
			name:      "blocked output",
			err:       fmt.Errorf("chunk 0: %w", ErrPermissionBlocked),
			mechanism: MechanismRemote,
			wantKind:  NotifyBlocked,
			wantMsg:   "Speech blocked by the device. Please allow audio playback and try the speaker control manually.",
		},
		{
			name:      "network",
			err:       errors.Join(ErrChunkPlaybackFailed, ErrNetwork),
			mechanism: MechanismRemote,
			wantKind:  NotifyNetwork,
			wantMsg:   "Network error. Please check your internet connection.",
		},
		{
			name:      "remote failure",
			err:       ErrChunkPlaybackFailed,
			mechanism: MechanismRemote,
			wantKind:  NotifyFailed,
			wantMsg:   "Cannot play audio in తెలుగు (Telugu). Please try again later.",
		},
		{
			name:      "local failure",
			err:       ErrSynthesisFailed,
			mechanism: MechanismLocal,
			wantKind:  NotifyFailed,
			wantMsg:   "Cannot speak in తెలుగు (Telugu). Try turning OFF auto-speak and use the speaker control manually.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := FailureNotice(tt.err, tt.mechanism, "te", 3)
			if n.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", n.Kind, tt.wantKind)
			}
			if n.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", n.Message, tt.wantMsg)
			}
			if n.MessageIndex != 3 || n.Language != "te" {
				t.Errorf("notice = %+v", n)
			}
		})
	}
}
