// Package remote plays speech produced by a remote synthesis service. Text is
// split into sentence-aligned chunks which are fetched and played strictly in
// order.
package remote

import (
	"context"
	"fmt"
	"time"

	"yatravoice/internal/domain/speech"

	"github.com/sirupsen/logrus"
)

type ServiceType string

const (
	ServiceTypeBackend ServiceType = "backend"
	ServiceTypeGoogle  ServiceType = "google"
	ServiceTypeNone    ServiceType = "none"
)

// SynthesisRequest is one chunk sent to a service.
type SynthesisRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Service turns text into an encoded audio clip.
type Service interface {
	Name() string
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// Config selects and configures a Service.
type Config struct {
	Type    ServiceType
	URL     string
	Timeout time.Duration
	Rate    float64

	GoogleVoice           string
	GoogleCredentialsFile string

	CacheDir     string
	CacheEntries int
}

// NewService builds the configured service, wrapped in a cache when
// CacheEntries or CacheDir is set. ServiceTypeNone returns
// speech.ErrSynthesisUnavailable.
func NewService(ctx context.Context, cfg Config, log logrus.FieldLogger) (Service, error) {
	var (
		svc Service
		err error
	)

	switch cfg.Type {
	case ServiceTypeBackend, "":
		svc, err = NewBackendService(cfg.URL, cfg.Timeout, log)
	case ServiceTypeGoogle:
		svc, err = NewGoogleService(ctx, GoogleConfig{
			Voice:           cfg.GoogleVoice,
			CredentialsFile: cfg.GoogleCredentialsFile,
			Rate:            cfg.Rate,
		})
	case ServiceTypeNone:
		return nil, speech.ErrSynthesisUnavailable
	default:
		return nil, fmt.Errorf("unsupported remote service type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheEntries > 0 || cfg.CacheDir != "" {
		return NewCachedService(svc, cfg.CacheEntries, cfg.CacheDir, log)
	}
	return svc, nil
}
