// Package summarizer produces short summaries of note content through the
// Gemini generateContent REST endpoint.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the generateContent URL of the default model.
const DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"

// DefaultTimeout bounds a single summarize request.
const DefaultTimeout = 10 * time.Second

const prompt = "Read the following text and provide a concise, yet complete summary " +
	"that captures all key details. Avoid adding opinions or extra commentary. " +
	"Respond only with the summary:\n\n"

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("summarizer: no API key configured")

	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("summarizer: empty response")
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("summarizer: api returned %d: %s", e.StatusCode, e.Message)
}

// Summarizer summarizes text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Client is a Gemini REST client.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the generateContent URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client. An empty apiKey yields a client whose Summarize
// always returns ErrNotConfigured.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
		logger:   slog.Default().With("component", "summarizer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Summarize asks the model for a summary of text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt + text}}}},
	})
	if err != nil {
		return "", fmt.Errorf("summarizer: encode request: %w", err)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("summarizer: endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("summarizer: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending summarize request", "chars", len(text))
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("summarizer: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("summarizer: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	summary := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if summary == "" {
		return "", ErrEmptyResponse
	}
	return summary, nil
}
