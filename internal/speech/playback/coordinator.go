package playback

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"yatravoice/internal/domain/chat"
	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/local"

	"github.com/sirupsen/logrus"
)

// attempt is one try at reading a message, including at most one fallback.
type attempt struct {
	gen       uint64
	req       speech.Request
	mechanism speech.Mechanism
	ctx       context.Context
	cancel    context.CancelFunc
	audible   bool
	fellBack  bool
	startedAt time.Time
	done      chan struct{}
}

// route is the mechanism chosen for an attempt.
type route struct {
	mechanism speech.Mechanism
	voice     *speech.Voice
	rate      float64
}

// Coordinator is the single owner of the speaking state. All methods are
// safe for concurrent use.
type Coordinator struct {
	local    LocalSpeaker
	remote   RemotePlayer
	voices   VoiceResolver
	notifier Notifier
	recorder Recorder
	log      logrus.FieldLogger

	mu        sync.Mutex
	cfg       Config
	gen       uint64
	att       *attempt
	last      *attempt
	index     int
	mechanism speech.Mechanism
	autoSeq   uint64
	autoTimer *time.Timer
	listeners map[int]Listener
	nextID    int
	pending   []any
	closed    bool

	// deliverMu keeps listener and notifier calls in order.
	deliverMu sync.Mutex
}

type Option func(*Coordinator)

func WithLocal(l LocalSpeaker) Option {
	return func(c *Coordinator) { c.local = l }
}

func WithRemote(r RemotePlayer) Option {
	return func(c *Coordinator) { c.remote = r }
}

func WithVoices(v VoiceResolver) Option {
	return func(c *Coordinator) {
		if v != nil {
			c.voices = v
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

func New(cfg Config, opts ...Option) *Coordinator {
	if cfg.AutoSpeakDelay <= 0 {
		cfg.AutoSpeakDelay = DefaultAutoSpeakDelay
	}
	if cfg.FallbackRate <= 0 {
		cfg.FallbackRate = DefaultFallbackRate
	}
	cfg.Language = speech.NormalizeLanguage(cfg.Language)

	c := &Coordinator{
		voices:    emptyResolver{},
		notifier:  noopNotifier{},
		recorder:  noopRecorder{},
		log:       logrus.StandardLogger(),
		cfg:       cfg,
		index:     speech.NoIndex,
		mechanism: speech.MechanismNone,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "playback")
	return c
}

// Supported reports whether any speech mechanism is available. Speaker
// controls should be hidden when it is false.
func (c *Coordinator) Supported() bool {
	return c.local != nil || c.remote != nil
}

// SpeakingIndex returns the message being read aloud, or speech.NoIndex.
func (c *Coordinator) SpeakingIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Coordinator) IsSpeaking(index int) bool {
	return index != speech.NoIndex && c.SpeakingIndex() == index
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := speech.NoIndex
	if c.att != nil && !c.att.audible {
		pending = c.att.req.MessageIndex
	}
	return Status{
		SpeakingIndex: c.index,
		Mechanism:     c.mechanism,
		PendingIndex:  pending,
		Language:      c.cfg.Language,
		AutoSpeak:     c.cfg.AutoSpeak,
		Supported:     c.Supported(),
	}
}

// Language returns the language new attempts are read in.
func (c *Coordinator) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Language
}

// SetLanguage changes the language for subsequent attempts. The current
// attempt keeps its language.
func (c *Coordinator) SetLanguage(code string) error {
	code = speech.NormalizeLanguage(code)
	if !speech.IsSupported(code) {
		return fmt.Errorf("unsupported language %q", code)
	}
	c.mu.Lock()
	c.cfg.Language = code
	c.mu.Unlock()
	return nil
}

// SetAutoSpeak turns automatic reading of new assistant messages on or off.
// Turning it off cancels a pending trigger.
func (c *Coordinator) SetAutoSpeak(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.AutoSpeak = on
	if !on {
		c.cancelAutoLocked()
	}
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (c *Coordinator) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Speak reads text aloud as message index, replacing whatever was playing.
// Blank text, a negative index, an unsupported device or a closed
// coordinator make it a no-op.
func (c *Coordinator) Speak(text string, index int) {
	c.speak(text, index, nil)
}

// Stop silences all speech before returning. Callbacks still in flight from
// the stopped attempt are ignored.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.cancelAutoLocked()
	c.stopLocked()
	c.mu.Unlock()
	c.flush()
}

// Toggle stops index when it is the active attempt, audible or not, and
// speaks it otherwise.
func (c *Coordinator) Toggle(text string, index int) {
	c.mu.Lock()
	if c.att != nil && c.att.req.MessageIndex == index {
		c.stopLocked()
		c.mu.Unlock()
		c.flush()
		return
	}
	c.mu.Unlock()

	c.Speak(text, index)
}

// MessageAppended is the automatic trigger: assistant messages are read
// after a short settle delay when auto-speak is on. A newer append cancels
// a trigger that has not fired yet.
func (c *Coordinator) MessageAppended(msg chat.Message, index int) {
	if msg.Role != chat.RoleAssistant {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelAutoLocked()
	if c.closed || !c.cfg.AutoSpeak || !c.Supported() {
		return
	}

	seq := c.autoSeq
	text := msg.Content
	c.autoTimer = time.AfterFunc(c.cfg.AutoSpeakDelay, func() {
		c.speak(text, index, func() bool {
			if c.autoSeq != seq || !c.cfg.AutoSpeak {
				return false
			}
			c.autoTimer = nil
			return true
		})
	})
}

// WaitIdle blocks until no attempt is active and the outcome of the last one
// has been delivered to listeners and the notifier, or ctx is done.
func (c *Coordinator) WaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		att, last := c.att, c.last
		c.mu.Unlock()

		wait := att
		if wait == nil {
			wait = last
		}
		if wait == nil {
			return nil
		}

		select {
		case <-wait.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if att == nil {
			return nil
		}
	}
}

// Close stops playback and drops pending triggers. Later calls to Speak are
// ignored.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelAutoLocked()
	c.stopLocked()
	c.mu.Unlock()

	c.flush()

	c.mu.Lock()
	c.listeners = make(map[int]Listener)
	c.mu.Unlock()
	return nil
}

// speak starts a new attempt. guard, when set, runs under the lock and can
// veto the attempt.
func (c *Coordinator) speak(text string, index int, guard func() bool) {
	if strings.TrimSpace(text) == "" {
		return
	}
	// The speaking index must name a message while sound is produced.
	if index < 0 {
		c.log.WithField("index", index).Warn("Ignoring speech for a negative message index")
		return
	}

	c.mu.Lock()
	if c.closed || !c.Supported() || (guard != nil && !guard()) {
		c.mu.Unlock()
		return
	}

	c.stopLocked()

	req := speech.NewRequest(text, c.cfg.Language, index)
	r := c.routeLocked(req)
	att := c.newAttemptLocked(req, r.mechanism)
	c.mu.Unlock()

	c.flush()
	c.launch(att, r)
}

// routeLocked picks the mechanism for a fresh request.
func (c *Coordinator) routeLocked(req speech.Request) route {
	entry := c.entry(req)

	if req.IsEnglish() {
		if c.local != nil {
			return route{mechanism: speech.MechanismLocal}
		}
		return route{mechanism: speech.MechanismRemote}
	}

	if c.local != nil {
		if v, ok := c.voices.Resolve(req.Language); ok {
			entry.WithField("voice", v.Name).Debug("Using device voice")
			return route{mechanism: speech.MechanismLocal, voice: &v}
		}
	}
	if c.remote != nil {
		entry.Debug("No device voice, using remote speech")
		return route{mechanism: speech.MechanismRemote}
	}

	entry.Warn("No device voice and no remote service. Text may be spelled out in English")
	return route{mechanism: speech.MechanismLocal}
}

func (c *Coordinator) newAttemptLocked(req speech.Request, m speech.Mechanism) *attempt {
	c.gen++
	ctx, cancel := context.WithCancel(context.Background())
	att := &attempt{
		gen:       c.gen,
		req:       req,
		mechanism: m,
		ctx:       ctx,
		cancel:    cancel,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	c.att = att
	c.recorder.AttemptStarted(m)
	return att
}

// launch hands att to its mechanism. It must be called without the lock.
func (c *Coordinator) launch(att *attempt, r route) {
	c.entry(att.req).WithField("mechanism", r.mechanism).Info("Speaking message")

	switch r.mechanism {
	case speech.MechanismRemote:
		go c.runRemote(att)
	default:
		u := local.Utterance{
			Text:     att.req.Text,
			Language: att.req.Language,
			Voice:    r.voice,
			Rate:     r.rate,
		}
		c.local.Speak(att.ctx, u, func(ev speech.Event) { c.onLocalEvent(att, ev) })
	}
}

func (c *Coordinator) onLocalEvent(att *attempt, ev speech.Event) {
	var retry bool

	c.mu.Lock()
	if !c.currentLocked(att) {
		c.mu.Unlock()
		return
	}

	switch ev.Kind {
	case speech.EventStarted:
		att.audible = true
		c.setSpeakingLocked(att.req.MessageIndex, speech.MechanismLocal)

	case speech.EventEnded:
		c.finishLocked(att, OutcomeCompleted)

	case speech.EventErrored:
		entry := c.entry(att.req).WithField("mechanism", speech.MechanismLocal)
		switch {
		case speech.IsCanceled(ev.Err):
			entry.Debug("Local speech canceled")
			c.finishLocked(att, OutcomeCanceled)
		case !att.req.IsEnglish() && !att.fellBack && c.remote != nil:
			entry.WithError(ev.Err).Warn("Local speech failed, trying remote speech")
			c.fallbackLocked(att, speech.MechanismRemote)
			retry = true
		default:
			entry.WithError(ev.Err).Error("Local speech failed")
			c.finishLocked(att, OutcomeFailed)
			c.pending = append(c.pending, speech.FailureNotice(ev.Err, speech.MechanismLocal, att.req.Language, att.req.MessageIndex))
		}
	}
	c.mu.Unlock()

	c.flush()
	if retry {
		go c.runRemote(att)
	}
}

func (c *Coordinator) runRemote(att *attempt) {
	err := c.remote.Play(att.ctx, att.req, func() { c.onRemoteAudible(att) })

	c.mu.Lock()
	if !c.currentLocked(att) {
		c.mu.Unlock()
		return
	}

	entry := c.entry(att.req).WithField("mechanism", speech.MechanismRemote)
	var fallback *route

	switch {
	case err == nil:
		c.finishLocked(att, OutcomeCompleted)

	case speech.IsCanceled(err):
		entry.Debug("Remote speech canceled")
		c.finishLocked(att, OutcomeCanceled)

	// Only a remote-first attempt that never produced sound falls back.
	case !att.fellBack && !att.audible:
		if c.local == nil {
			entry.WithError(err).Error("Remote speech failed and no device synthesizer is available")
			c.finishLocked(att, OutcomeFailed)
			c.pending = append(c.pending, speech.UnsupportedNotice(att.req.Language, att.req.MessageIndex))
			break
		}

		r := route{mechanism: speech.MechanismLocal, rate: c.cfg.FallbackRate}
		if v, ok := c.voices.Resolve(att.req.Language); ok {
			r.voice = &v
			entry = entry.WithField("voice", v.Name)
		} else if !att.req.IsEnglish() {
			entry.Warn("No device voice found. Text may be spelled out in English")
		}
		entry.WithError(err).Warn("Remote speech failed, trying device speech")
		c.fallbackLocked(att, speech.MechanismLocal)
		fallback = &r

	default:
		entry.WithError(err).Error("Remote speech failed")
		c.finishLocked(att, OutcomeFailed)
		c.pending = append(c.pending, speech.FailureNotice(err, speech.MechanismRemote, att.req.Language, att.req.MessageIndex))
	}
	c.mu.Unlock()

	c.flush()
	if fallback != nil {
		c.launch(att, *fallback)
	}
}

func (c *Coordinator) onRemoteAudible(att *attempt) {
	c.mu.Lock()
	if c.currentLocked(att) {
		att.audible = true
		c.setSpeakingLocked(att.req.MessageIndex, speech.MechanismRemote)
	}
	c.mu.Unlock()
	c.flush()
}

func (c *Coordinator) currentLocked(att *attempt) bool {
	return c.att == att && att.gen == c.gen
}

// fallbackLocked moves att to the other mechanism. It happens once per attempt.
func (c *Coordinator) fallbackLocked(att *attempt, to speech.Mechanism) {
	c.recorder.Fallback(att.mechanism, to)
	att.fellBack = true
	att.audible = false
	att.mechanism = to
	c.setSpeakingLocked(speech.NoIndex, speech.MechanismNone)
}

// finishLocked ends att and returns to idle.
func (c *Coordinator) finishLocked(att *attempt, outcome Outcome) {
	att.cancel()
	if c.att == att {
		c.att = nil
	}
	c.last = att
	c.recorder.AttemptFinished(att.mechanism, outcome, time.Since(att.startedAt))
	c.setSpeakingLocked(speech.NoIndex, speech.MechanismNone)
	// done is closed by flush, after everything queued before it was delivered.
	c.pending = append(c.pending, att.done)
}

// stopLocked tears down the active attempt and silences both mechanisms.
func (c *Coordinator) stopLocked() {
	c.gen++
	if att := c.att; att != nil {
		c.entry(att.req).Debug("Stopping speech")
		c.finishLocked(att, OutcomeStopped)
	}
	if c.local != nil {
		c.local.Cancel()
	}
	if c.remote != nil {
		c.remote.Stop()
	}
	c.setSpeakingLocked(speech.NoIndex, speech.MechanismNone)
}

func (c *Coordinator) cancelAutoLocked() {
	c.autoSeq++
	if c.autoTimer != nil {
		c.autoTimer.Stop()
		c.autoTimer = nil
	}
}

// setSpeakingLocked records the speaking message and queues a state change
// when it differs from the current one.
func (c *Coordinator) setSpeakingLocked(index int, m speech.Mechanism) {
	if index == speech.NoIndex {
		m = speech.MechanismNone
	}
	if c.index == index && c.mechanism == m {
		return
	}
	c.index = index
	c.mechanism = m
	c.recorder.SetSpeaking(index != speech.NoIndex)
	c.pending = append(c.pending, StateChange{SpeakingIndex: index, Mechanism: m})
}

// flush delivers queued state changes and notifications in order. It must
// be called without the lock.
func (c *Coordinator) flush() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	for _, p := range pending {
		switch v := p.(type) {
		case StateChange:
			for _, l := range listeners {
				l(v)
			}
		case speech.Notification:
			c.notifier.Notify(v)
		case chan struct{}:
			close(v)
		}
	}
}

func (c *Coordinator) entry(req speech.Request) logrus.FieldLogger {
	return c.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"index":      req.MessageIndex,
		"language":   req.Language,
	})
}

