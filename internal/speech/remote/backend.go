package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"yatravoice/internal/domain/speech"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 15 * time.Second

// BackendService is a client of the application backend's speech routes:
// POST {base}/tts/speak and GET {base}/tts/languages.
type BackendService struct {
	base   string
	client *http.Client
	log    logrus.FieldLogger
}

func NewBackendService(baseURL string, timeout time.Duration, log logrus.FieldLogger) (*BackendService, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &BackendService{
		base:   baseURL,
		client: &http.Client{Timeout: timeout},
		log:    log.WithField("component", "speech-backend"),
	}, nil
}

func (b *BackendService) Name() string {
	return string(ServiceTypeBackend)
}

// apiError is the JSON body the backend sends with non-2xx responses.
type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (b *BackendService) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+"/tts/speak", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	res, err := b.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, statusError(res)
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %v", speech.ErrNetwork, err)
	}
	if len(audio) == 0 {
		return nil, errors.New("speech service returned no audio")
	}

	b.log.WithFields(logrus.Fields{
		"language": req.Language,
		"chars":    len(req.Text),
		"bytes":    len(audio),
	}).Debug("Fetched speech chunk")

	return audio, nil
}

// Languages lists the languages the backend can synthesize.
func (b *BackendService) Languages(ctx context.Context) ([]speech.Language, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/tts/languages", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	res, err := b.do(ctx, httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, statusError(res)
	}

	var body struct {
		Success   bool `json:"success"`
		Languages []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"languages"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode languages: %w", err)
	}

	out := make([]speech.Language, 0, len(body.Languages))
	for _, l := range body.Languages {
		out = append(out, speech.Language{Code: l.Code, Name: l.Name, Tag: speech.LocaleTag(l.Code)})
	}
	return out, nil
}

// do sends req, classifying transport failures as speech.ErrNetwork. A
// canceled context is returned as is.
func (b *BackendService) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	res, err := b.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", speech.ErrNetwork, err)
	}
	return res, nil
}

func statusError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("speech service status %d: %s", res.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("speech service status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
}
