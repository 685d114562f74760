// Package local wraps on-device text-to-speech engines and reports the
// lifecycle of each utterance as speech events.
package local

import (
	"context"
	"fmt"
	"runtime"

	"yatravoice/internal/domain/speech"
)

type EngineType string

const (
	EngineTypeMock   EngineType = "mock"
	EngineTypeESpeak EngineType = "espeak"
	EngineTypeSay    EngineType = "say"  // macOS only
	EngineTypeSAPI   EngineType = "sapi" // Windows only
	EngineTypeNone   EngineType = "none"
	EngineTypeAuto   EngineType = "auto" // Automatically choose best for platform
)

func (e EngineType) String() string {
	return string(e)
}

// Utterance is one piece of text handed to an engine.
type Utterance struct {
	Text string
	// Language is the short language code of the text.
	Language string
	// LanguageTag is the locale the engine should read with. Filled in by the
	// Adapter from Language or from Voice.
	LanguageTag string
	Voice       *speech.Voice
	Rate        float64
	Pitch       float64
	Volume      float64
}

// Job is a started utterance.
type Job interface {
	// Done yields exactly one value when the utterance finishes: nil on
	// success, an error wrapping speech.ErrSynthesisCanceled when Cancel was
	// called, or one wrapping speech.ErrSynthesisFailed otherwise.
	Done() <-chan error
	Cancel()
}

// Engine is an on-device speech mechanism.
type Engine interface {
	Name() string
	Voices(ctx context.Context) ([]speech.Voice, error)
	Start(u Utterance) (Job, error)
}

// NewEngine creates the engine named by engineType. EngineTypeNone returns
// speech.ErrSynthesisUnavailable so callers can hide speech controls.
func NewEngine(engineType EngineType) (Engine, error) {
	if engineType == EngineTypeAuto || engineType == "" {
		engineType = bestEngineForPlatform()
	}

	switch engineType {
	case EngineTypeMock:
		return NewMockEngine(), nil

	case EngineTypeESpeak:
		return newESpeakEngine()

	case EngineTypeSay:
		if runtime.GOOS != "darwin" {
			return nil, fmt.Errorf("%w: say engine only supports macOS", speech.ErrSynthesisUnavailable)
		}
		return newSayEngine()

	case EngineTypeSAPI:
		if runtime.GOOS != "windows" {
			return nil, fmt.Errorf("%w: SAPI engine only supports Windows", speech.ErrSynthesisUnavailable)
		}
		return newSAPIEngine()

	case EngineTypeNone:
		return nil, speech.ErrSynthesisUnavailable

	default:
		return nil, fmt.Errorf("unsupported local engine type: %s", engineType)
	}
}

// bestEngineForPlatform returns the recommended engine for the current platform
func bestEngineForPlatform() EngineType {
	switch runtime.GOOS {
	case "windows":
		return EngineTypeSAPI
	case "darwin":
		return EngineTypeSay
	default:
		return EngineTypeESpeak
	}
}

// AvailableEngines returns engines that can be selected on the current platform.
func AvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeMock, EngineTypeESpeak}

	switch runtime.GOOS {
	case "windows":
		engines = append(engines, EngineTypeSAPI)
	case "darwin":
		engines = append(engines, EngineTypeSay)
	}

	return engines
}
