package local

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"yatravoice/internal/cli/scheme/colours"
	"yatravoice/internal/domain/speech"
)

// MockEngine prints utterances instead of speaking them. Each utterance lasts
// a time proportional to its word count.
type MockEngine struct {
	mu     sync.Mutex
	voices []speech.Voice
	// PerWord is the simulated reading time of one word at rate 1.
	PerWord time.Duration
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		voices: []speech.Voice{
			{Name: "mock-english", LanguageTag: "en-US"},
			{Name: "mock-hindi", LanguageTag: "hi-IN"},
		},
		PerWord: 400 * time.Millisecond,
	}
}

func (m *MockEngine) Name() string {
	return EngineTypeMock.String()
}

// SetVoices replaces the voices the mock reports.
func (m *MockEngine) SetVoices(voices []speech.Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices = append([]speech.Voice(nil), voices...)
}

func (m *MockEngine) Voices(_ context.Context) ([]speech.Voice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]speech.Voice(nil), m.voices...), nil
}

func (m *MockEngine) Start(u Utterance) (Job, error) {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(u.Text))
	duration := time.Duration(float64(words) * float64(m.PerWord) / rate)

	voice := "default"
	if u.Voice != nil {
		voice = u.Voice.Name
	}
	fmt.Println(colours.Speaking("🔊 [%s/%s] %s (simulated for %v)", voice, u.LanguageTag, u.Text, duration))

	job := &timerJob{done: make(chan error, 1), stop: make(chan struct{})}
	go job.run(duration)
	return job, nil
}

type timerJob struct {
	done chan error
	stop chan struct{}
	once sync.Once
}

func (j *timerJob) run(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		j.done <- nil
	case <-j.stop:
		j.done <- fmt.Errorf("mock: %w", speech.ErrSynthesisCanceled)
	}
	close(j.done)
}

func (j *timerJob) Done() <-chan error {
	return j.done
}

func (j *timerJob) Cancel() {
	j.once.Do(func() { close(j.stop) })
}
