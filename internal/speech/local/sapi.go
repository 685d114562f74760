package local

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"yatravoice/internal/domain/speech"
)

// The text and voice travel through the environment so they never need
// escaping inside the PowerShell script.
const (
	sapiTextEnv  = "YATRAVOICE_TEXT"
	sapiVoiceEnv = "YATRAVOICE_VOICE"
)

const sapiSpeakScript = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
if ($env:YATRAVOICE_VOICE) { $synth.SelectVoice($env:YATRAVOICE_VOICE) }
$synth.Rate = %d;
$synth.Volume = %d;
$synth.Speak($env:YATRAVOICE_TEXT)`

const sapiVoicesScript = `Add-Type -AssemblyName System.Speech;
$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer;
$synth.GetInstalledVoices() | ForEach-Object { $_.VoiceInfo.Name + "|" + $_.VoiceInfo.Culture.Name }`

// SAPIEngine speaks through the Windows Speech API via PowerShell.
type SAPIEngine struct {
	path string
}

func newSAPIEngine() (*SAPIEngine, error) {
	path, err := exec.LookPath("powershell")
	if err != nil {
		return nil, fmt.Errorf("%w: powershell not found: %v", speech.ErrSynthesisUnavailable, err)
	}
	return &SAPIEngine{path: path}, nil
}

func (s *SAPIEngine) Name() string {
	return EngineTypeSAPI.String()
}

func (s *SAPIEngine) Start(u Utterance) (Job, error) {
	script := fmt.Sprintf(sapiSpeakScript,
		clampInt(int(u.Rate*10)-10, -10, 10), // Convert to SAPI range (-10 to 10)
		clampInt(int(u.Volume*100), 0, 100),  // Convert to SAPI range (0 to 100)
	)

	cmd := exec.Command(s.path, "-NoProfile", "-Command", script)
	cmd.Env = append(os.Environ(), sapiTextEnv+"="+u.Text)
	if u.Voice != nil && u.Voice.Name != "" {
		cmd.Env = append(cmd.Env, sapiVoiceEnv+"="+u.Voice.Name)
	}

	return startProcess("sapi", cmd)
}

func (s *SAPIEngine) Voices(ctx context.Context) ([]speech.Voice, error) {
	output, err := exec.CommandContext(ctx, s.path, "-NoProfile", "-Command", sapiVoicesScript).Output()
	if err != nil {
		return nil, err
	}
	return parseSAPIVoices(string(output)), nil
}

// parseSAPIVoices reads "Name|culture" lines.
func parseSAPIVoices(output string) []speech.Voice {
	voices := make([]speech.Voice, 0)
	for _, line := range strings.Split(output, "\n") {
		name, tag, ok := strings.Cut(strings.TrimSpace(line), "|")
		if !ok || name == "" {
			continue
		}
		voices = append(voices, speech.Voice{Name: name, LanguageTag: tag})
	}
	return voices
}
