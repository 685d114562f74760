package speech

import (
	"strings"

	"github.com/google/uuid"
)

// NoIndex marks the absence of a speaking message.
const NoIndex = -1

// DefaultChunkLimit is the per-request character limit of the remote speech service.
const DefaultChunkLimit = 200

// Request is one playback attempt for a message. It is never persisted.
type Request struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Language     string `json:"language"`
	MessageIndex int    `json:"message_index"`
}

func NewRequest(text, language string, index int) Request {
	return Request{
		ID:           uuid.NewString(),
		Text:         text,
		Language:     NormalizeLanguage(language),
		MessageIndex: index,
	}
}

// IsEnglish reports whether the request targets English.
func (r Request) IsEnglish() bool {
	return r.Language == LanguageEnglish
}

// Voice is one on-device voice reported by a local engine.
type Voice struct {
	Name        string `json:"name"`
	LanguageTag string `json:"language_tag"`
}

// HasLanguagePrefix reports whether the voice's tag starts with the given code.
// Tags are compared case-insensitively with '_' treated as '-'.
func (v Voice) HasLanguagePrefix(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	return strings.HasPrefix(NormalizeTag(v.LanguageTag), code)
}

// NormalizeTag lower-cases a language tag and uses '-' as separator.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}

// Mechanism identifies which speech mechanism is producing audio.
type Mechanism string

const (
	MechanismNone   Mechanism = "none"
	MechanismLocal  Mechanism = "local"
	MechanismRemote Mechanism = "remote"
)

func (m Mechanism) String() string {
	return string(m)
}
