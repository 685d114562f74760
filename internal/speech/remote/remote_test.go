package remote

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"yatravoice/internal/speech/audio"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeService returns "audio:<text>" and records what it was asked for.
type fakeService struct {
	mu       sync.Mutex
	requests []SynthesisRequest
	failAt   int // request number that fails, -1 for none
	err      error
	// hook runs before answering request n.
	hook func(n int)
}

func newFakeService() *fakeService { return &fakeService{failAt: -1} }

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	f.mu.Lock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if n == f.failAt {
		return nil, f.err
	}
	return []byte("audio:" + req.Text), nil
}

func (f *fakeService) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Text
	}
	return out
}

// fakeHandle finishes on its own after a short delay unless manual is set.
type fakeHandle struct {
	clip    string
	manual  bool
	playErr error
	err     error

	mu       sync.Mutex
	done     chan struct{}
	once     sync.Once
	paused   bool
	rewound  bool
	closed   bool
	startedC chan struct{}
}

func (h *fakeHandle) Play() error {
	if h.playErr != nil {
		return h.playErr
	}
	close(h.startedC)
	if !h.manual {
		go func() {
			time.Sleep(time.Millisecond)
			h.finish()
		}()
	}
	return nil
}

func (h *fakeHandle) finish() { h.once.Do(func() { close(h.done) }) }

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) Err() error { return h.err }

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	h.paused = true
	h.mu.Unlock()
}

func (h *fakeHandle) Rewind() {
	h.mu.Lock()
	h.rewound = true
	h.mu.Unlock()
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.finish()
	return nil
}

func (h *fakeHandle) state() (paused, rewound, closed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused, h.rewound, h.closed
}

// fakeAudio hands out fakeHandles and records the order clips were loaded.
type fakeAudio struct {
	mu      sync.Mutex
	handles []*fakeHandle
	manual  bool
	loadErr error
	playErr error
	// streamErrAt makes the handle for load n report a stream error.
	streamErrAt int
}

func newFakeAudio() *fakeAudio { return &fakeAudio{streamErrAt: -1} }

func (a *fakeAudio) Load(clip []byte) (audio.Handle, error) {
	if a.loadErr != nil {
		return nil, a.loadErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	h := &fakeHandle{
		clip:     string(clip),
		manual:   a.manual,
		playErr:  a.playErr,
		done:     make(chan struct{}),
		startedC: make(chan struct{}),
	}
	if len(a.handles) == a.streamErrAt {
		h.err = errors.New("corrupt frame")
	}
	a.handles = append(a.handles, h)
	return h, nil
}

func (a *fakeAudio) handle(i int) *fakeHandle {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i >= len(a.handles) {
		return nil
	}
	return a.handles[i]
}

func (a *fakeAudio) clips() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.handles))
	for i, h := range a.handles {
		out[i] = h.clip
	}
	return out
}
