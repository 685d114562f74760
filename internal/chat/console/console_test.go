package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"yatravoice/internal/domain/chat"
	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/playback"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

type fakeSpeaker struct {
	calls    []string
	language string
	auto     bool
}

func (f *fakeSpeaker) Toggle(text string, index int) {
	f.calls = append(f.calls, "toggle:"+text)
}

func (f *fakeSpeaker) Stop() { f.calls = append(f.calls, "stop") }

func (f *fakeSpeaker) SetLanguage(code string) error {
	if !speech.IsSupported(code) {
		return io.ErrUnexpectedEOF
	}
	f.language = speech.NormalizeLanguage(code)
	return nil
}

func (f *fakeSpeaker) SetAutoSpeak(on bool) { f.auto = on }

func (f *fakeSpeaker) Status() playback.Status {
	return playback.Status{SpeakingIndex: speech.NoIndex, PendingIndex: speech.NoIndex}
}

func (f *fakeSpeaker) Subscribe(playback.Listener) func() { return func() {} }

func run(t *testing.T, input string) (*chat.Conversation, *fakeSpeaker, string) {
	t.Helper()
	color.NoColor = true

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	conv := chat.NewConversation()
	speaker := &fakeSpeaker{auto: true}
	var out bytes.Buffer

	s := NewSession(conv, speaker, strings.NewReader(input), &out, logger)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return conv, speaker, out.String()
}

func TestSessionAppendsMessages(t *testing.T) {
	conv, _, _ := run(t, "/u How do I save?\nPut 20% aside every month.\n/a Start an SIP.\n")

	msgs := conv.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	roles := []chat.Role{msgs[0].Role, msgs[1].Role, msgs[2].Role}
	want := []chat.Role{chat.RoleUser, chat.RoleAssistant, chat.RoleAssistant}
	if diff := cmp.Diff(want, roles); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
	if msgs[2].Content != "Start an SIP." {
		t.Errorf("content = %q", msgs[2].Content)
	}
}

func TestSessionToggleStopAndQuit(t *testing.T) {
	_, speaker, out := run(t, "Budget first.\n/t 0\n/t 9\n/s\n/q\n/t 0\n")

	want := []string{"toggle:Budget first.", "stop", "stop"}
	if diff := cmp.Diff(want, speaker.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "No message 9") {
		t.Errorf("output missing error for unknown message:\n%s", out)
	}
}

func TestSessionLanguageAndAutoSpeak(t *testing.T) {
	_, speaker, out := run(t, "/l te\n/l xx\n/auto off\n")

	if speaker.language != "te" {
		t.Errorf("language = %q, want te", speaker.language)
	}
	if speaker.auto {
		t.Error("auto speak still on")
	}
	if !strings.Contains(out, "Telugu") {
		t.Errorf("output missing language name:\n%s", out)
	}
}
