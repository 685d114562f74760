// Package voice keeps the on-device voice catalogue and decides which voice,
// if any, can read a given language.
package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"yatravoice/internal/domain/speech"

	"github.com/sirupsen/logrus"
)

// settleDelay is how long after the first load the catalogue is read again.
// Some engines only report their full voice list after warming up.
const settleDelay = 100 * time.Millisecond

// Source reports the voices currently installed on the device.
type Source interface {
	Voices(ctx context.Context) ([]speech.Voice, error)
}

// Catalogue holds the latest voice snapshot. Snapshots replace each other;
// they are never merged.
type Catalogue struct {
	mu       sync.RWMutex
	voices   []speech.Voice
	loadedAt time.Time
	log      logrus.FieldLogger
}

func NewCatalogue(log logrus.FieldLogger) *Catalogue {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Catalogue{log: log.WithField("component", "voice-catalogue")}
}

// Replace installs a new snapshot.
func (c *Catalogue) Replace(voices []speech.Voice) {
	snapshot := make([]speech.Voice, len(voices))
	copy(snapshot, voices)

	c.mu.Lock()
	c.voices = snapshot
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logSnapshot(snapshot)
}

// Snapshot returns a copy of the current snapshot. Before any load it is empty.
func (c *Catalogue) Snapshot() []speech.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]speech.Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// LoadedAt returns when the current snapshot was installed (zero if never).
func (c *Catalogue) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Resolve picks a voice for language from the current snapshot.
func (c *Catalogue) Resolve(language string) (speech.Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Resolve(c.voices, language)
}

// Refresh reads the source once and replaces the snapshot on success.
func (c *Catalogue) Refresh(ctx context.Context, src Source) error {
	voices, err := src.Voices(ctx)
	if err != nil {
		return fmt.Errorf("list voices: %w", err)
	}
	c.Replace(voices)
	return nil
}

// Watch loads the catalogue immediately, once more after a short settle delay,
// and then every interval until ctx is done. interval <= 0 disables the
// periodic reload. Load failures are logged and keep the previous snapshot.
func (c *Catalogue) Watch(ctx context.Context, src Source, interval time.Duration) {
	load := func() {
		if err := c.Refresh(ctx, src); err != nil && ctx.Err() == nil {
			c.log.WithError(err).Warn("Failed to load device voices")
		}
	}

	load()

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(settleDelay):
			load()
		}

		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				load()
			}
		}
	}()
}

func (c *Catalogue) logSnapshot(voices []speech.Voice) {
	var indian []string
	for _, v := range voices {
		for _, l := range speech.Languages() {
			if l.Code != speech.LanguageEnglish && v.HasLanguagePrefix(l.Code) {
				indian = append(indian, fmt.Sprintf("%s (%s)", v.Name, v.LanguageTag))
				break
			}
		}
	}

	entry := c.log.WithField("voices", len(voices))
	if len(indian) > 0 {
		entry.WithField("indian_voices", strings.Join(indian, ", ")).Debug("Loaded device voices")
		return
	}
	entry.Debug("Loaded device voices; no Indian language voices, remote speech will be used for them")
}

// Resolve returns the voice that should read language.
//
// An entry whose tag starts with the language code wins. Failing that, for any
// language other than English, a Hindi voice is returned: it reads other
// Indian scripts more intelligibly than an English voice would. This is a
// heuristic approximation, not correct pronunciation.
func Resolve(voices []speech.Voice, language string) (speech.Voice, bool) {
	language = speech.NormalizeLanguage(language)

	for _, v := range voices {
		if v.HasLanguagePrefix(language) {
			return v, true
		}
	}

	if language == speech.LanguageEnglish {
		return speech.Voice{}, false
	}

	for _, v := range voices {
		if v.HasLanguagePrefix(speech.HindiPrefix) {
			return v, true
		}
	}

	return speech.Voice{}, false
}
