package local

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"yatravoice/internal/domain/speech"

	"github.com/sirupsen/logrus"
)

const (
	DefaultRate   = 0.8
	DefaultPitch  = 1.0
	DefaultVolume = 1.0
)

// EventSink receives the lifecycle of one utterance: Started, then exactly
// one of Ended or Errored. When Start itself fails only Errored is sent.
type EventSink func(speech.Event)

// Adapter drives an Engine for single utterances and keeps at most one of
// them alive.
type Adapter struct {
	engine Engine
	rate   float64
	pitch  float64
	volume float64
	log    logrus.FieldLogger

	mu      sync.Mutex
	current Job
}

type Option func(*Adapter)

func WithRate(rate float64) Option {
	return func(a *Adapter) {
		if rate > 0 {
			a.rate = rate
		}
	}
}

func WithPitch(pitch float64) Option {
	return func(a *Adapter) {
		if pitch > 0 {
			a.pitch = pitch
		}
	}
}

func WithVolume(volume float64) Option {
	return func(a *Adapter) {
		if volume >= 0 {
			a.volume = volume
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

func NewAdapter(engine Engine, opts ...Option) *Adapter {
	a := &Adapter{
		engine: engine,
		rate:   DefaultRate,
		pitch:  DefaultPitch,
		volume: DefaultVolume,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithFields(logrus.Fields{"component": "local-speech", "engine": engine.Name()})
	return a
}

func (a *Adapter) Name() string {
	return a.engine.Name()
}

// Voices reports the engine's installed voices.
func (a *Adapter) Voices(ctx context.Context) ([]speech.Voice, error) {
	return a.engine.Voices(ctx)
}

// prepare fills the locale and the adapter defaults. A voice's own tag wins
// over the locale derived from the language.
func (a *Adapter) prepare(u Utterance) Utterance {
	u.LanguageTag = speech.LocaleTag(u.Language)
	if u.Voice != nil && u.Voice.LanguageTag != "" {
		u.LanguageTag = u.Voice.LanguageTag
	}
	if u.Rate <= 0 {
		u.Rate = a.rate
	}
	if u.Pitch <= 0 {
		u.Pitch = a.pitch
	}
	if u.Volume <= 0 {
		u.Volume = a.volume
	}
	return u
}

// Speak starts u and reports its lifecycle to sink. Any utterance still
// running is canceled first. Canceling ctx cancels the utterance, reported
// as Errored with speech.ErrSynthesisCanceled.
func (a *Adapter) Speak(ctx context.Context, u Utterance, sink EventSink) {
	u = a.prepare(u)
	entry := a.log.WithFields(logrus.Fields{"lang": u.LanguageTag, "chars": len(u.Text)})
	if u.Voice != nil {
		entry = entry.WithField("voice", u.Voice.Name)
	}

	a.mu.Lock()
	if err := ctx.Err(); err != nil {
		a.mu.Unlock()
		sink(speech.Errored(fmt.Errorf("%w: %v", speech.ErrSynthesisCanceled, err)))
		return
	}
	if a.current != nil {
		a.current.Cancel()
		a.current = nil
	}
	job, err := a.engine.Start(u)
	if err == nil {
		a.current = job
	}
	a.mu.Unlock()

	if err != nil {
		entry.WithError(err).Warn("Local speech failed to start")
		if !errors.Is(err, speech.ErrSynthesisFailed) && !errors.Is(err, speech.ErrSynthesisUnavailable) {
			err = fmt.Errorf("%w: %v", speech.ErrSynthesisFailed, err)
		}
		sink(speech.Errored(err))
		return
	}

	entry.Debug("Local speech started")
	sink(speech.Started())

	go a.watch(ctx, job, entry, sink)
}

func (a *Adapter) watch(ctx context.Context, job Job, entry logrus.FieldLogger, sink EventSink) {
	var err error
	select {
	case err = <-job.Done():
	case <-ctx.Done():
		job.Cancel()
		<-job.Done()
		err = fmt.Errorf("%w: %v", speech.ErrSynthesisCanceled, ctx.Err())
	}

	a.mu.Lock()
	if a.current == job {
		a.current = nil
	}
	a.mu.Unlock()

	switch {
	case err == nil:
		entry.Debug("Local speech ended")
		sink(speech.Ended())
	case speech.IsCanceled(err):
		entry.Debug("Local speech canceled")
		sink(speech.Errored(err))
	default:
		entry.WithError(err).Warn("Local speech failed")
		sink(speech.Errored(err))
	}
}

// Cancel stops the running utterance, if any. Its sink receives Errored with
// speech.ErrSynthesisCanceled.
func (a *Adapter) Cancel() {
	a.mu.Lock()
	job := a.current
	a.current = nil
	a.mu.Unlock()

	if job != nil {
		job.Cancel()
	}
}
