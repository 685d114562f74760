package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"yatravoice/internal/domain/speech"
	"yatravoice/internal/speech/audio"

	"github.com/sirupsen/logrus"
)

// ChunkError reports the chunk that aborted a sequence.
type ChunkError struct {
	Index int
	// Played is the number of chunks that had become audible before the failure.
	Played int
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// ChunkedPlayer fetches and plays the chunks of a request one after another.
type ChunkedPlayer struct {
	service Service
	player  audio.Player
	limit   int
	log     logrus.FieldLogger

	mu      sync.Mutex
	current audio.Handle
}

func NewChunkedPlayer(service Service, player audio.Player, limit int, log logrus.FieldLogger) *ChunkedPlayer {
	if limit <= 0 {
		limit = speech.DefaultChunkLimit
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChunkedPlayer{
		service: service,
		player:  player,
		limit:   limit,
		log:     log.WithField("component", "remote-player"),
	}
}

func (p *ChunkedPlayer) Name() string {
	return p.service.Name()
}

// Play speaks req chunk by chunk and returns when the last chunk finished.
// onStart runs once, when the first chunk becomes audible. Canceling ctx ends
// the sequence; no chunk is requested after cancellation is seen and a
// result fetched after it is discarded. The returned error is nil, a
// canceled error, or a *ChunkError.
func (p *ChunkedPlayer) Play(ctx context.Context, req speech.Request, onStart func()) error {
	chunks := Split(req.Text, p.limit)
	entry := p.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"index":      req.MessageIndex,
		"language":   req.Language,
		"chunks":     len(chunks),
	})
	entry.Debug("Playing remote speech")

	played := 0
	fail := func(i int, err error) error {
		return &ChunkError{Index: i, Played: played, Err: err}
	}

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}

		clip, err := p.service.Synthesize(ctx, SynthesisRequest{Text: chunk, Language: req.Language})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return canceled(ctxErr)
		}
		if err != nil {
			return fail(i, fmt.Errorf("%w: fetch: %w", speech.ErrChunkPlaybackFailed, err))
		}

		h, err := p.player.Load(clip)
		if err != nil {
			return fail(i, fmt.Errorf("%w: %w", speech.ErrChunkPlaybackFailed, err))
		}
		if !p.hold(ctx, h) {
			_ = h.Close()
			return canceled(ctx.Err())
		}

		if err := h.Play(); err != nil {
			p.release(h)
			return fail(i, fmt.Errorf("%w: %w", speech.ErrChunkPlaybackFailed, err))
		}
		if played == 0 && onStart != nil {
			onStart()
		}
		played++

		select {
		case <-h.Done():
		case <-ctx.Done():
		}
		streamErr := h.Err()
		p.release(h)

		if err := ctx.Err(); err != nil {
			return canceled(err)
		}
		if streamErr != nil {
			return fail(i, fmt.Errorf("%w: %w", speech.ErrChunkPlaybackFailed, streamErr))
		}
		entry.WithField("chunk", i).Debug("Chunk played")
	}

	return nil
}

// Stop pauses, rewinds and releases the audible chunk. Cancel the context
// given to Play to end the sequence.
func (p *ChunkedPlayer) Stop() {
	p.mu.Lock()
	h := p.current
	p.current = nil
	p.mu.Unlock()

	if h != nil {
		h.Pause()
		h.Rewind()
		_ = h.Close()
	}
}

// hold makes h the current handle unless ctx is already canceled.
func (p *ChunkedPlayer) hold(ctx context.Context, h audio.Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	p.current = h
	return true
}

func (p *ChunkedPlayer) release(h audio.Handle) {
	p.mu.Lock()
	if p.current == h {
		p.current = nil
	}
	p.mu.Unlock()
	_ = h.Close()
}

func canceled(cause error) error {
	if cause == nil {
		return speech.ErrSynthesisCanceled
	}
	return errors.Join(speech.ErrSynthesisCanceled, cause)
}
