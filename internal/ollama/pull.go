// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPullInFlight reports a second download request for a model that
	// is already downloading. Duplicate transfers are rejected, not
	// coalesced.
	ErrPullInFlight = errors.New("model download already in progress")

	// ErrPullCancelled reports a download terminated by CancelPull.
	ErrPullCancelled = errors.New("model download cancelled")

	// ErrPullFailed reports a download that the service aborted.
	ErrPullFailed = errors.New("model download failed")
)

// PullProgress is one progress update from a streaming model download.
type PullProgress struct {
	// Status is the service-reported phase (e.g. "pulling manifest",
	// "downloading", "success").
	Status string `json:"status"`

	// Completed and Total are byte counts for the current layer. Total is
	// zero while the manifest is being resolved.
	Completed int64 `json:"completed"`
	Total     int64 `json:"total"`
}

// pullScanBuffer sizes the line scanner for /api/pull responses. Progress
// lines are small but digest lines can exceed the bufio default.
const pullScanBuffer = 1 << 20

// Pull downloads a model via POST /api/pull, invoking onProgress for each
// newline-delimited progress object in the response stream. At most one
// pull per model name may be in flight; a concurrent request fails with
// ErrPullInFlight. Cancellation through CancelPull terminates the transfer
// and returns ErrPullCancelled; a cancelled model is never registered as
// installed because the service only commits a model on a completed pull.
func (c *Client) Pull(ctx context.Context, name string, onProgress func(PullProgress)) error {
	pullCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if _, exists := c.pulls[name]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPullInFlight, name)
	}
	c.pulls[name] = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pulls, name)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return fmt.Errorf("marshaling pull request: %w", err)
	}

	req, err := http.NewRequestWithContext(pullCtx, http.MethodPost, c.baseURL+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating pull request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if pullCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("%w: %s", ErrPullCancelled, name)
		}
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", ErrPullFailed, resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), pullScanBuffer)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var progress PullProgress
		if err := json.Unmarshal(line, &progress); err != nil {
			// Non-JSON noise in the stream is ignored, matching the
			// permissive behavior of the service's own CLI.
			continue
		}

		if onProgress != nil {
			onProgress(progress)
		}

		var svcErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(line, &svcErr) == nil && svcErr.Error != "" {
			return fmt.Errorf("%w: %s", ErrPullFailed, svcErr.Error)
		}
	}

	if err := scanner.Err(); err != nil {
		if pullCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("%w: %s", ErrPullCancelled, name)
		}
		return fmt.Errorf("reading pull stream: %w", err)
	}

	if pullCtx.Err() != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: %s", ErrPullCancelled, name)
	}

	c.log.Info().Str("model", name).Msg("model download complete")
	return nil
}

// CancelPull cancels an in-flight download for the named model. It
// reports whether a download was actually cancelled.
func (c *Client) CancelPull(name string) bool {
	c.mu.Lock()
	cancel, ok := c.pulls[name]
	c.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	c.log.Info().Str("model", name).Msg("model download cancelled")
	return true
}

// PullInFlight reports whether a download for the named model is running.
func (c *Client) PullInFlight(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pulls[name]
	return ok
}
