package playback

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/local"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// localCall is one utterance handed to fakeLocal.
type localCall struct {
	u    local.Utterance
	sink local.EventSink
	ctx  context.Context
	once sync.Once
}

func (c *localCall) start() { c.sink(speech.Started()) }

func (c *localCall) end() { c.terminate(speech.Ended()) }

func (c *localCall) fail(err error) { c.terminate(speech.Errored(err)) }

func (c *localCall) terminate(ev speech.Event) {
	c.once.Do(func() { c.sink(ev) })
}

// fakeLocal behaves like local.Adapter: a canceled context ends the
// utterance with a cancellation error.
type fakeLocal struct {
	mu        sync.Mutex
	calls     []*localCall
	autoStart bool
	startErr  error
	cancels   int
}

func (f *fakeLocal) Speak(ctx context.Context, u local.Utterance, sink local.EventSink) {
	call := &localCall{u: u, sink: sink, ctx: ctx}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	startErr, auto := f.startErr, f.autoStart
	f.mu.Unlock()

	if startErr != nil {
		call.fail(startErr)
		return
	}
	if auto {
		call.start()
	}
	go func() {
		<-ctx.Done()
		call.terminate(speech.Errored(speech.ErrSynthesisCanceled))
	}()
}

func (f *fakeLocal) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeLocal) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLocal) call(t *testing.T, i int) *localCall {
	t.Helper()
	waitFor(t, "local utterance", func() bool { return f.count() > i })
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// remoteCall is one request handed to fakeRemote. Send on result to finish it.
type remoteCall struct {
	req     speech.Request
	ctx     context.Context
	onStart func()
	result  chan error
}

type fakeRemote struct {
	mu        sync.Mutex
	calls     []*remoteCall
	autoStart bool
	stops     int
}

func (f *fakeRemote) Play(ctx context.Context, req speech.Request, onStart func()) error {
	call := &remoteCall{req: req, ctx: ctx, onStart: onStart, result: make(chan error, 1)}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	auto := f.autoStart
	f.mu.Unlock()

	if auto {
		onStart()
	}
	select {
	case err := <-call.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRemote) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeRemote) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeRemote) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) call(t *testing.T, i int) *remoteCall {
	t.Helper()
	waitFor(t, "remote request", func() bool { return f.count() > i })
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type stubVoices map[string]speech.Voice

func (s stubVoices) Resolve(language string) (speech.Voice, bool) {
	v, ok := s[language]
	return v, ok
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []speech.Notification
}

func (f *fakeNotifier) Notify(n speech.Notification) {
	f.mu.Lock()
	f.notices = append(f.notices, n)
	f.mu.Unlock()
}

func (f *fakeNotifier) all() []speech.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]speech.Notification(nil), f.notices...)
}

type stateLog struct {
	mu      sync.Mutex
	changes []StateChange
}

func (s *stateLog) listen(c StateChange) {
	s.mu.Lock()
	s.changes = append(s.changes, c)
	s.mu.Unlock()
}

func (s *stateLog) all() []StateChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StateChange(nil), s.changes...)
}

type harness struct {
	c        *Coordinator
	local    *fakeLocal
	remote   *fakeRemote
	notifier *fakeNotifier
	states   *stateLog
}

func newHarness(t *testing.T, voices stubVoices, mutate ...func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AutoSpeakDelay = 10 * time.Millisecond
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{
		local:    &fakeLocal{},
		remote:   &fakeRemote{},
		notifier: &fakeNotifier{},
		states:   &stateLog{},
	}
	h.c = New(cfg,
		WithLocal(h.local),
		WithRemote(h.remote),
		WithVoices(voices),
		WithNotifier(h.notifier),
		WithLogger(testLogger()),
	)
	h.c.Subscribe(h.states.listen)
	t.Cleanup(func() { _ = h.c.Close() })
	return h
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.c.WaitIdle(ctx); err != nil {
		t.Fatalf("WaitIdle: %v", err)
	}
}
