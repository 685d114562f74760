package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/playback"
	"yatravoice/internal/speech/remote"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type stubService struct{ err error }

func (s stubService) Name() string { return "stub" }

func (s stubService) Synthesize(context.Context, remote.SynthesisRequest) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("ID3"), nil
}

func TestRecorder(t *testing.T) {
	m := New()

	m.AttemptStarted(speech.MechanismRemote)
	m.Fallback(speech.MechanismRemote, speech.MechanismLocal)
	m.SetSpeaking(true)
	m.AttemptFinished(speech.MechanismLocal, playback.OutcomeCompleted, time.Second)
	m.SetSpeaking(false)

	if got := testutil.ToFloat64(m.Attempts.WithLabelValues("remote")); got != 1 {
		t.Errorf("attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Fallbacks.WithLabelValues("remote", "local")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Outcomes.WithLabelValues("local", "completed")); got != 1 {
		t.Errorf("outcomes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Speaking); got != 0 {
		t.Errorf("speaking = %v, want 0", got)
	}
}

func TestInstrumentService(t *testing.T) {
	m := New()

	ok := m.InstrumentService(stubService{})
	if _, err := ok.Synthesize(context.Background(), remote.SynthesisRequest{Text: "x"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	failing := m.InstrumentService(stubService{err: errors.New("boom")})
	_, _ = failing.Synthesize(context.Background(), remote.SynthesisRequest{Text: "x"})
	canceled := m.InstrumentService(stubService{err: context.Canceled})
	_, _ = canceled.Synthesize(context.Background(), remote.SynthesisRequest{Text: "x"})

	for result, want := range map[string]float64{"ok": 1, "error": 1, "canceled": 1} {
		if got := testutil.ToFloat64(m.ChunkRequests.WithLabelValues("stub", result)); got != want {
			t.Errorf("requests{result=%q} = %v, want %v", result, got, want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.AttemptStarted(speech.MechanismLocal)
	m.AttemptFinished(speech.MechanismLocal, playback.OutcomeFailed, 0)
	m.SetSpeaking(true)
	m.EventSent("state")

	svc := stubService{}
	if got := m.InstrumentService(svc); got != remote.Service(svc) {
		t.Error("nil metrics should return the service unchanged")
	}
}
