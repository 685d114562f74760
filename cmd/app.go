package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"yatravoice/internal/api"
	"yatravoice/internal/config"
	"yatravoice/internal/domain/chat"
	"yatravoice/internal/domain/speech"
	"yatravoice/internal/metrics"
	"yatravoice/internal/notify"
	"yatravoice/internal/speech/audio"
	"yatravoice/internal/speech/local"
	"yatravoice/internal/speech/playback"
	"yatravoice/internal/speech/remote"
	"yatravoice/internal/speech/voice"

	"github.com/sirupsen/logrus"
)

// app holds the wired speech stack for one command run.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	metrics *metrics.Metrics

	conv    *chat.Conversation
	voices  *voice.Catalogue
	adapter *local.Adapter
	service remote.Service
	closer  io.Closer
	coord   *playback.Coordinator
	hub     *api.Hub
}

func setupLogger(cfg config.Log) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// newApp builds every collaborator from cfg. A mechanism that cannot be set
// up is left out and logged; the coordinator reports unsupported when both
// are missing.
func newApp(ctx context.Context, cfg config.Config, toastOut io.Writer) (*app, error) {
	log, err := setupLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		conv:    chat.NewConversation(),
		voices:  voice.NewCatalogue(log),
	}
	a.hub = api.NewHub(a.metrics, log)

	opts := []playback.Option{
		playback.WithVoices(a.voices),
		playback.WithRecorder(a.metrics),
		playback.WithNotifier(notify.Fanout{notify.NewToast(toastOut, log), a.hub}),
		playback.WithLogger(log),
	}

	engine, err := local.NewEngine(local.EngineType(cfg.Local.Engine))
	switch {
	case errors.Is(err, speech.ErrSynthesisUnavailable):
		log.WithError(err).Info("Local speech engine disabled")
	case err != nil:
		log.WithError(err).Warn("Local speech engine unavailable")
	default:
		a.adapter = local.NewAdapter(engine,
			local.WithRate(cfg.Speech.Rate),
			local.WithPitch(cfg.Speech.Pitch),
			local.WithVolume(cfg.Speech.Volume),
			local.WithLogger(log),
		)
		a.voices.Watch(ctx, a.adapter, cfg.Local.VoiceRefresh)
		opts = append(opts, playback.WithLocal(a.adapter))
		log.WithField("engine", engine.Name()).Info("Local speech engine ready")
	}

	svc, err := remote.NewService(ctx, remote.Config{
		Type:                  remote.ServiceType(cfg.Remote.Type),
		URL:                   cfg.Remote.URL,
		Timeout:               cfg.Remote.Timeout,
		Rate:                  cfg.Speech.Rate,
		GoogleVoice:           cfg.Remote.GoogleVoice,
		GoogleCredentialsFile: cfg.Remote.GoogleCredentialsFile,
		CacheDir:              cfg.Remote.CacheDir,
		CacheEntries:          cfg.Remote.CacheEntries,
	}, log)
	switch {
	case errors.Is(err, speech.ErrSynthesisUnavailable):
		log.Info("Remote speech service disabled")
	case err != nil:
		log.WithError(err).Warn("Remote speech service unavailable")
	default:
		if c, ok := svc.(io.Closer); ok {
			a.closer = c
		}
		a.service = a.metrics.InstrumentService(svc)
		player := remote.NewChunkedPlayer(a.service, audio.NewSpeakerPlayer(), cfg.Remote.ChunkLimit, log)
		opts = append(opts, playback.WithRemote(player))
		log.WithField("service", svc.Name()).Info("Remote speech service ready")
	}

	a.coord = playback.New(playback.Config{
		Language:       cfg.Speech.Language,
		AutoSpeak:      cfg.Speech.AutoSpeak,
		AutoSpeakDelay: cfg.Speech.AutoSpeakDelay,
		FallbackRate:   cfg.Speech.FallbackRate,
	}, opts...)

	a.coord.Subscribe(a.hub.OnState)
	a.conv.OnAppend(a.coord.MessageAppended)
	a.conv.OnAppend(a.hub.OnAppend)

	return a, nil
}

func (a *app) close() {
	if err := a.coord.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to stop playback")
	}
	a.hub.Close()
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			a.log.WithError(err).Debug("Failed to close speech service")
		}
	}
}
