// Package console runs an interactive chat in the terminal. Assistant
// replies are typed in by hand and read aloud through the playback
// coordinator.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"yatravoice/internal/cli/scheme/colours"
	"yatravoice/internal/domain/chat"
	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/playback"

	"github.com/sirupsen/logrus"
)

// Speaker is the part of the playback coordinator the console drives.
type Speaker interface {
	Toggle(text string, index int)
	Stop()
	SetLanguage(code string) error
	SetAutoSpeak(on bool)
	Status() playback.Status
	Subscribe(fn playback.Listener) func()
}

type Session struct {
	conv    *chat.Conversation
	speaker Speaker
	in      io.Reader
	out     io.Writer
	log     logrus.FieldLogger
}

func NewSession(conv *chat.Conversation, speaker Speaker, in io.Reader, out io.Writer, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		conv:    conv,
		speaker: speaker,
		in:      in,
		out:     out,
		log:     log.WithField("component", "console"),
	}
}

func (s *Session) ShowWelcome() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, colours.Title.Sprint("🪔 Yatra assistant chat 🪔"))
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, colours.Info.Sprint("💬 Commands:"))
	fmt.Fprintln(s.out, "  • <text>        - Add an assistant reply (read aloud when auto-speak is on)")
	fmt.Fprintln(s.out, "  • /u <text>     - Add a user message")
	fmt.Fprintln(s.out, "  • /t <n>        - Toggle reading message n")
	fmt.Fprintln(s.out, "  • /s            - Stop speaking")
	fmt.Fprintln(s.out, "  • /l <code>     - Change language (en, hi, te, ta, ...)")
	fmt.Fprintln(s.out, "  • /auto on|off  - Toggle auto-speak")
	fmt.Fprintln(s.out, "  • /list         - Show the conversation")
	fmt.Fprintln(s.out, "  • /q            - Quit")
	fmt.Fprintln(s.out)
}

// Run reads commands until /q, end of input or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	unsubscribe := s.speaker.Subscribe(s.onState)
	defer unsubscribe()

	reader := bufio.NewReader(s.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Fprint(s.out, colours.Prompt.Sprint("> "))
		input, err := reader.ReadString('\n')
		line := strings.TrimSpace(input)

		if line != "" && !s.handle(line) {
			s.speaker.Stop()
			return nil
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

// handle runs one command line and reports whether the session goes on.
func (s *Session) handle(line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	if !strings.HasPrefix(cmd, "/") {
		s.append(chat.RoleAssistant, line)
		return true
	}

	switch cmd {
	case "/a":
		s.append(chat.RoleAssistant, arg)
	case "/u":
		s.append(chat.RoleUser, arg)
	case "/t", "/toggle":
		s.toggle(arg)
	case "/s", "/stop":
		s.speaker.Stop()
		fmt.Fprintln(s.out, colours.Warning.Sprint("⏹️  Stopped"))
	case "/l", "/lang":
		if err := s.speaker.SetLanguage(arg); err != nil {
			fmt.Fprintln(s.out, colours.Error.Sprintf("❌ %v", err))
			break
		}
		fmt.Fprintln(s.out, colours.Success.Sprintf("🌐 Language: %s", speech.DisplayName(speech.NormalizeLanguage(arg))))
	case "/auto":
		on := arg == "on"
		s.speaker.SetAutoSpeak(on)
		fmt.Fprintln(s.out, colours.Info.Sprintf("🔁 Auto-speak: %v", on))
	case "/list", "/ls":
		s.list()
	case "/q", "/quit":
		return false
	default:
		fmt.Fprintln(s.out, colours.Info.Sprint("ℹ️  Unknown command, see the list above"))
	}
	return true
}

func (s *Session) append(role chat.Role, text string) {
	if text == "" {
		fmt.Fprintln(s.out, colours.Warning.Sprint("⚠️  Empty message ignored"))
		return
	}
	index := s.conv.Append(role, text)
	s.log.WithFields(logrus.Fields{"index": index, "role": role}).Debug("Message appended")
	if msg, ok := s.conv.Get(index); ok {
		s.print(index, msg, false)
	}
}

func (s *Session) toggle(arg string) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintln(s.out, colours.Error.Sprint("❌ Usage: /t <message number>"))
		return
	}
	msg, ok := s.conv.Get(index)
	if !ok {
		fmt.Fprintln(s.out, colours.Error.Sprintf("❌ No message %d", index))
		return
	}
	s.speaker.Toggle(msg.Content, index)
}

func (s *Session) list() {
	speaking := s.speaker.Status().SpeakingIndex
	for i, msg := range s.conv.Messages() {
		s.print(i, msg, i == speaking)
	}
}

func (s *Session) print(index int, msg chat.Message, speaking bool) {
	marker := "  "
	if speaking {
		marker = colours.Marker("🔊")
	}
	who := colours.User
	if msg.Role == chat.RoleAssistant {
		who = colours.Assistant
	}
	fmt.Fprintf(s.out, "%s [%d] %s %s\n", marker, index, who.Sprintf("%-9s", msg.Role), msg.Content)
}

func (s *Session) onState(change playback.StateChange) {
	if change.Speaking() {
		fmt.Fprintln(s.out, colours.Speaking("🔊 Reading message %d (%s)", change.SpeakingIndex, change.Mechanism))
		return
	}
	fmt.Fprintln(s.out, colours.Speaking("🔈 Done"))
}
