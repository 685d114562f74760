package remote

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"yatravoice/internal/domain/speech"
)

type GoogleConfig struct {
	// Voice is a full Cloud voice name such as "hi-IN-Wavenet-A". It is only
	// used for languages whose locale matches its prefix.
	Voice           string
	CredentialsFile string
	Rate            float64
}

// GoogleService synthesizes speech with Google Cloud Text-to-Speech.
type GoogleService struct {
	client *texttospeech.Client
	cfg    GoogleConfig
}

func NewGoogleService(ctx context.Context, cfg GoogleConfig) (*GoogleService, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	return &GoogleService{client: client, cfg: cfg}, nil
}

func (g *GoogleService) Name() string {
	return string(ServiceTypeGoogle)
}

func (g *GoogleService) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, g.request(req))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	return resp.AudioContent, nil
}

func (g *GoogleService) request(req SynthesisRequest) *texttospeechpb.SynthesizeSpeechRequest {
	locale := speech.LocaleTag(req.Language)

	voice := &texttospeechpb.VoiceSelectionParams{LanguageCode: locale}
	if g.cfg.Voice != "" && strings.HasPrefix(strings.ToLower(g.cfg.Voice), strings.ToLower(locale)) {
		voice.Name = g.cfg.Voice
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices don't support speakingRate
	if g.cfg.Rate > 0 && !strings.Contains(strings.ToLower(voice.Name), "chirp") {
		audioCfg.SpeakingRate = g.cfg.Rate
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice:       voice,
		AudioConfig: audioCfg,
	}
}

func (g *GoogleService) Close() error {
	return g.client.Close()
}
