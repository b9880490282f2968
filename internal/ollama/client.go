// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ollama is the gateway to the local Ollama inference service:
// connectivity checks, text generation, and cancellable model downloads.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/review-engine/pkg/types"
)

// DefaultBaseURL is the standard local Ollama endpoint.
const DefaultBaseURL = "http://localhost:11434"

const (
	defaultConnectTimeout  = 5 * time.Second
	defaultGenerateTimeout = 2 * time.Minute
)

var (
	// ErrUnreachable reports that the inference service could not be
	// reached at all.
	ErrUnreachable = errors.New("ollama service unreachable")

	// ErrTimeout reports that a model produced no response within the
	// configured interval.
	ErrTimeout = errors.New("ollama request timed out")

	// ErrModel reports any other failure surfaced by the service.
	ErrModel = errors.New("ollama model error")
)

// ModelInfo describes one installed model as reported by /api/tags.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Client talks to a local Ollama service. The connectivity flag is cached
// state refreshed only by CheckConnection, never inferred mid-request, so
// that screening preconditions are explicit. The flag and the in-flight
// pull registry are the only shared mutable state and both are guarded by
// mu.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	connectTimeout  time.Duration
	generateTimeout time.Duration
	log             zerolog.Logger

	mu        sync.Mutex
	connected bool
	pulls     map[string]context.CancelFunc
}

// NewClient builds a Client from config, applying defaults for any unset
// field.
func NewClient(cfg types.OllamaConfig, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	generateTimeout := cfg.GenerateTimeout
	if generateTimeout <= 0 {
		generateTimeout = defaultGenerateTimeout
	}

	return &Client{
		baseURL:         baseURL,
		httpClient:      &http.Client{},
		connectTimeout:  connectTimeout,
		generateTimeout: generateTimeout,
		log:             log,
		pulls:           make(map[string]context.CancelFunc),
	}
}

// IsConnected reports the cached connectivity state from the most recent
// CheckConnection call.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// CheckConnection probes GET /api/version and refreshes the cached
// connectivity flag. It returns the service version when reachable.
func (c *Client) CheckConnection(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	var body struct {
		Version string `json:"version"`
	}
	err := c.getJSON(ctx, "/api/version", &body)

	c.mu.Lock()
	c.connected = err == nil
	c.mu.Unlock()

	if err != nil {
		c.log.Warn().Err(err).Msg("ollama not detected; local AI unavailable")
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	c.log.Debug().Str("version", body.Version).Msg("ollama connected")
	return body.Version, nil
}

// ListModels returns the installed models from GET /api/tags.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	var body struct {
		Models []ModelInfo `json:"models"`
	}
	if err := c.getJSON(ctx, "/api/tags", &body); err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	return body.Models, nil
}

// generateRequest is the body for POST /api/generate. JSON output format
// is always requested; downstream parsing still tolerates prose wrapping.
type generateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
	Format      string  `json:"format"`
}

// Generate runs one completion against the named model and returns the
// raw response text. Failures classify into ErrUnreachable, ErrTimeout,
// and ErrModel so the council can convert them into synthetic votes.
func (c *Client) Generate(ctx context.Context, model, prompt, system string, temperature float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	reqBody := generateRequest{
		Model:       model,
		Prompt:      prompt,
		System:      system,
		Temperature: temperature,
		Stream:      false,
		Format:      "json",
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrModel, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrModel, err)
	}
	if body.Response == "" {
		return "", fmt.Errorf("%w: empty response", ErrModel)
	}

	c.log.Debug().
		Str("model", model).
		Dur("latency", time.Since(start)).
		Msg("generation complete")

	return body.Response, nil
}

// classifyTransportError maps transport failures onto the gateway error
// taxonomy.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// getJSON performs a GET request and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d from %s", ErrModel, resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
