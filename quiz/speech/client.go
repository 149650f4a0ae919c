// Package speech provides the remote text-to-speech client used to
// read question prompts aloud. The client is stateless: each call is a
// single POST to a per-voice endpoint and either yields audio bytes or
// a typed failure.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModelID = "eleven_multilingual_v2"
	defaultTimeout = 15 * time.Second
)

// ErrUnconfigured indicates synthesis was requested without an API
// credential or voice id. Absence of a voice on a record is a valid
// "skip speech" state and should be checked before calling; this error
// covers the genuinely misconfigured case.
var ErrUnconfigured = errors.New("speech synthesis is not configured")

// SynthesisError indicates the speech endpoint rejected a request.
type SynthesisError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed with status %d", e.StatusCode)
}

// Config holds the speech client configuration. An empty APIKey is a
// valid state meaning speech is disabled, not an error.
type Config struct {
	APIKey  string
	BaseURL string
	ModelID string
	Timeout time.Duration
}

// Client issues synthesis requests. It holds no per-session state.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a speech client, filling config defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = defaultModelID
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether the client holds an API credential.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

type synthesisRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize converts text to audio with the given voice. It succeeds
// only on a 2xx response, returning the raw audio payload.
func (c *Client) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	if c.cfg.APIKey == "" || voiceID == "" {
		return nil, ErrUnconfigured
	}

	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.cfg.ModelID})
	if err != nil {
		return nil, fmt.Errorf("unable to encode synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", c.cfg.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Keep a slice of the body for diagnostics; endpoints return
		// JSON error details here.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &SynthesisError{StatusCode: resp.StatusCode, Body: string(detail)}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read synthesis response: %w", err)
	}
	log.Debug("synthesized prompt audio", "voice", voiceID, "bytes", len(audio))
	return audio, nil
}
