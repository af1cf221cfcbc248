// Package transcription turns stored call audio into a single ordered transcript,
// chunking oversized recordings and fanning the chunks out to a speech-to-text provider.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"call-insights/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

var ErrProvider = errors.New("transcription: provider error")

// Request is one provider call: a named, standalone audio file plus a hint prompt.
type Request struct {
	Name   string
	Audio  []byte
	Prompt string
}

type ProviderResult struct {
	Text string
}

// Provider is a speech-to-text backend.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (ProviderResult, error)
}

type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string

	Timeout     time.Duration
	MaxAttempts int
}

// WhisperClient calls an OpenAI-compatible /audio/transcriptions endpoint (Groq by default).
type WhisperClient struct {
	cfg  WhisperConfig
	http *http.Client

	initialInterval time.Duration
}

func NewWhisperClient(cfg WhisperConfig, hc *http.Client) *WhisperClient {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WhisperClient{cfg: cfg, http: hc, initialInterval: time.Second}
}

type whisperResponse struct {
	Text string `json:"text"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, req Request) (ProviderResult, error) {
	body, contentType, err := c.encode(req)
	if err != nil {
		return ProviderResult{}, err
	}

	log := logger.From(ctx)
	attempt := 0
	var out whisperResponse
	op := func() error {
		attempt++
		err := c.post(ctx, body, contentType, &out)
		if err != nil && ctx.Err() == nil {
			log.Warn("transcription attempt failed", "chunk", req.Name, "attempt", attempt, "err", err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return ProviderResult{}, err
	}
	return ProviderResult{Text: out.Text}, nil
}

func (c *WhisperClient) encode(req Request) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", req.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return nil, "", err
	}

	fields := [][2]string{
		{"model", c.cfg.Model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
		{"timestamp_granularities[]", "segment"},
		{"language", c.cfg.Language},
		{"temperature", "0"},
	}
	if req.Prompt != "" {
		fields = append(fields, [2]string{"prompt", req.Prompt})
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *WhisperClient) post(ctx context.Context, body []byte, contentType string, out *whisperResponse) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, truncate(string(raw), 300))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrProvider, err))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// MockProvider is used when USE_MOCK_TRANSCRIBE=true.
type MockProvider struct{}

func (MockProvider) Transcribe(ctx context.Context, req Request) (ProviderResult, error) {
	return ProviderResult{
		Text: "MOCK TRANSCRIPT (" + req.Name + "): Hi, this is Dana. My internet has been down since this morning. " +
			"Responder Sam walked me through a router restart and it works now.",
	}, nil
}
