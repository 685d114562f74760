// Package audio decodes speech clips and plays them on the default output
// device.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"yatravoice/internal/domain/speech"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// DefaultSampleRate is the rate the speaker is opened with. Clips with another
// rate are resampled.
const DefaultSampleRate = beep.SampleRate(44100)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Player turns encoded clips into playable handles.
type Player interface {
	Load(clip []byte) (Handle, error)
}

// Handle is one loaded clip.
type Handle interface {
	// Play starts output. It does not block.
	Play() error
	// Done is closed when the clip finished or the handle was closed.
	Done() <-chan struct{}
	// Err reports a decoding error hit while streaming.
	Err() error
	Pause()
	Rewind()
	// Close stops output and releases the decoder.
	Close() error
}

type Format int

const (
	FormatUnknown Format = iota
	FormatMP3
	FormatWAV
)

// Sniff guesses the encoding of clip from its header.
func Sniff(clip []byte) Format {
	switch {
	case len(clip) >= 12 && bytes.Equal(clip[:4], []byte("RIFF")) && bytes.Equal(clip[8:12], []byte("WAVE")):
		return FormatWAV
	case len(clip) >= 3 && bytes.Equal(clip[:3], []byte("ID3")):
		return FormatMP3
	case len(clip) >= 2 && clip[0] == 0xFF && clip[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

func decode(clip []byte) (beep.StreamSeekCloser, beep.Format, error) {
	switch Sniff(clip) {
	case FormatMP3:
		return mp3.Decode(io.NopCloser(bytes.NewReader(clip)))
	case FormatWAV:
		return wav.Decode(bytes.NewReader(clip))
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker opens the output device once per process.
func initSpeaker(sr beep.SampleRate) error {
	speakerOnce.Do(func() {
		if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
			speakerErr = fmt.Errorf("%w: %v", speech.ErrPermissionBlocked, err)
		}
	})
	return speakerErr
}

// SpeakerPlayer plays clips through the beep speaker.
type SpeakerPlayer struct {
	sampleRate beep.SampleRate
}

func NewSpeakerPlayer() *SpeakerPlayer {
	return &SpeakerPlayer{sampleRate: DefaultSampleRate}
}

func (p *SpeakerPlayer) Load(clip []byte) (Handle, error) {
	streamer, format, err := decode(clip)
	if err != nil {
		return nil, fmt.Errorf("decode clip: %w", err)
	}

	h := &speakerHandle{
		streamer:   streamer,
		sampleRate: p.sampleRate,
		done:       make(chan struct{}),
	}

	var s beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		s = beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	}
	h.ctrl = &beep.Ctrl{Streamer: s}

	return h, nil
}

type speakerHandle struct {
	streamer   beep.StreamSeekCloser
	ctrl       *beep.Ctrl
	sampleRate beep.SampleRate
	done       chan struct{}
	finishOnce sync.Once
	closeOnce  sync.Once
}

func (h *speakerHandle) finish() {
	h.finishOnce.Do(func() { close(h.done) })
}

func (h *speakerHandle) Play() error {
	if err := initSpeaker(h.sampleRate); err != nil {
		return err
	}
	speaker.Play(beep.Seq(h.ctrl, beep.Callback(h.finish)))
	return nil
}

func (h *speakerHandle) Done() <-chan struct{} {
	return h.done
}

func (h *speakerHandle) Err() error {
	return h.streamer.Err()
}

func (h *speakerHandle) Pause() {
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
}

func (h *speakerHandle) Rewind() {
	speaker.Lock()
	_ = h.streamer.Seek(0)
	speaker.Unlock()
}

func (h *speakerHandle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		// A Ctrl without a streamer is drained by the mixer.
		speaker.Lock()
		h.ctrl.Streamer = nil
		speaker.Unlock()
		err = h.streamer.Close()
		h.finish()
	})
	return err
}
