package local

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"yatravoice/internal/domain/speech"
)

// SayEngine speaks through the macOS `say` command.
type SayEngine struct {
	path string
}

func newSayEngine() (*SayEngine, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return nil, fmt.Errorf("%w: say not found: %v", speech.ErrSynthesisUnavailable, err)
	}
	return &SayEngine{path: path}, nil
}

func (s *SayEngine) Name() string {
	return EngineTypeSay.String()
}

func (s *SayEngine) Start(u Utterance) (Job, error) {
	args := []string{}

	if u.Voice != nil && u.Voice.Name != "" {
		args = append(args, "-v", u.Voice.Name)
	}

	// Set rate (words per minute, default is ~175)
	args = append(args, "-r", strconv.Itoa(int(175*u.Rate)))

	args = append(args, "--", u.Text)

	return startProcess("say", exec.Command(s.path, args...))
}

func (s *SayEngine) Voices(ctx context.Context) ([]speech.Voice, error) {
	output, err := exec.CommandContext(ctx, s.path, "-v", "?").Output()
	if err != nil {
		return nil, err
	}
	return parseSayVoices(string(output)), nil
}

// The output format is: "VoiceName    language    # description".
// Voice names may contain spaces and parentheses.
var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+([a-z]{2,3}[_-][A-Za-z0-9]+)\s+#`)

func parseSayVoices(output string) []speech.Voice {
	voices := make([]speech.Voice, 0)
	for _, line := range strings.Split(output, "\n") {
		m := sayVoiceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		voices = append(voices, speech.Voice{
			Name:        strings.TrimSpace(m[1]),
			LanguageTag: strings.ReplaceAll(m[2], "_", "-"),
		})
	}
	return voices
}
