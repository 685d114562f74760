// Cross-platform eSpeak implementation
package local

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"yatravoice/internal/domain/speech"
)

// ESpeakEngine implements local speech using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	path string
}

// newESpeakEngine creates a new eSpeak engine
func newESpeakEngine() (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", speech.ErrSynthesisUnavailable, err)
	}

	engine := &ESpeakEngine{path: espeakPath}

	// Test the installation
	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("%w: eSpeak test failed: %v", speech.ErrSynthesisUnavailable, err)
	}

	return engine, nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakEngine) Name() string {
	return EngineTypeESpeak.String()
}

func (e *ESpeakEngine) Start(u Utterance) (Job, error) {
	return startProcess("espeak", exec.Command(e.path, espeakArgs(u)...))
}

func (e *ESpeakEngine) Voices(ctx context.Context) ([]speech.Voice, error) {
	output, err := exec.CommandContext(ctx, e.path, "--voices").Output()
	if err != nil {
		return nil, err
	}
	return parseESpeakVoices(string(output)), nil
}

func espeakArgs(u Utterance) []string {
	args := []string{}

	// eSpeak picks its voice by language tag.
	switch {
	case u.Voice != nil && u.Voice.LanguageTag != "":
		args = append(args, "-v", speech.NormalizeTag(u.Voice.LanguageTag))
	case u.LanguageTag != "":
		args = append(args, "-v", speech.NormalizeTag(u.LanguageTag))
	}

	// Speed in words per minute, default is 175
	args = append(args, "-s", strconv.Itoa(int(math.Round(175*u.Rate))))

	// Pitch 0-99, default is 50
	args = append(args, "-p", strconv.Itoa(clampInt(int(50*u.Pitch), 0, 99)))

	// Amplitude 0-200, default is 100
	args = append(args, "-a", strconv.Itoa(clampInt(int(100*u.Volume), 0, 200)))

	// "--" keeps text starting with '-' from being read as a flag.
	return append(args, "--", u.Text)
}

// parseESpeakVoices reads the table printed by `espeak --voices`:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  hi              --/M      Hindi              inc/hi
func parseESpeakVoices(output string) []speech.Voice {
	lines := strings.Split(output, "\n")
	voices := make([]speech.Voice, 0)

	for i, line := range lines {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, speech.Voice{Name: fields[3], LanguageTag: fields[1]})
		}
	}

	return voices
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
