package predict

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"typeahead/internal/logging"
)

// Options are the sampling options sent with every generate call.
type Options struct {
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultOptions returns sampling options tuned for short inline
// completions.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		TopK:        50,
		TopP:        0.9,
		MaxTokens:   20,
	}
}

// Client talks to a local Ollama-compatible server. One Client (and its
// underlying connection pool) is opened at startup and shared for the
// process lifetime; the scheduler guarantees at most one request is in
// flight at a time.
type Client struct {
	endpoint string
	model    string
	opts     Options
	client   *http.Client
	verified bool
}

// NewClient creates a generate client. endpoint defaults to the local
// Ollama port.
func NewClient(endpoint, model string, timeout time.Duration, opts Options) *Client {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		opts:     opts,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

// generateChunk is one newline-delimited stream fragment. Unknown fields
// are ignored; fragments that do not decode at all are skipped.
type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Verify checks that the server answers at all. Called lazily before the
// first completion so a slow-starting server does not block daemon startup.
func (c *Client) Verify(ctx context.Context) error {
	req := generateRequest{
		Model:   c.model,
		Prompt:  "test",
		Options: Options{MaxTokens: 1},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("predict: marshal verify request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("predict: build verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("predict: backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("predict: backend returned status %d", resp.StatusCode)
	}
	logging.API("backend verified at %s (model %s)", c.endpoint, c.model)
	return nil
}

// Complete requests a completion for one text segment and concatenates the
// streamed partials until the done flag or end of stream. Returns the
// whitespace-trimmed completion, which may be empty.
func (c *Client) Complete(ctx context.Context, segment string) (string, error) {
	if !c.verified {
		if err := c.Verify(ctx); err != nil {
			return "", err
		}
		c.verified = true
	}

	req := generateRequest{
		Model:   c.model,
		Prompt:  "Complete this sentence naturally and briefly: " + segment,
		Stream:  true,
		Options: c.opts,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("predict: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("predict: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("predict: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("predict: backend returned status %d", resp.StatusCode)
	}

	var completion strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// One bad fragment does not end the stream.
			logging.APIDebug("skipping malformed chunk: %v", err)
			continue
		}
		completion.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		// Context cancellation surfaces here; everything read so far is
		// discarded by the caller anyway.
		return "", fmt.Errorf("predict: stream read: %w", err)
	}

	text := strings.TrimSpace(completion.String())
	logging.APIDebug("completion for %q in %s: %q", segment, time.Since(start).Round(time.Millisecond), text)
	return text, nil
}
