// Package aiclient is a minimal OpenAI-compatible API client covering the
// two calls the agents need: text embeddings for service card enrichment and
// chat completions for document summarization.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// ErrEmptyResponse is returned when the API returns no choices or data.
var ErrEmptyResponse = errors.New("empty response")

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for an OpenAI-compatible API.
type Client struct {
	Model          string
	EmbeddingModel string

	token      string
	baseURL    string
	httpClient Doer
}

// Option is an option for the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, for proxies and tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient overrides the transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.httpClient = d
	}
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(c *Client) {
		c.Model = model
	}
}

// WithEmbeddingModel overrides the embedding model.
func WithEmbeddingModel(model string) Option {
	return func(c *Client) {
		c.EmbeddingModel = model
	}
}

// New returns a new client.
func New(token string, opts ...Option) *Client {
	c := &Client{
		Model:          DefaultChatModel,
		EmbeddingModel: DefaultEmbeddingModel,
		token:          token,
		baseURL:        DefaultBaseURL,
		httpClient:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type embeddingPayload struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponsePayload struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// CreateEmbedding embeds the given inputs, one vector per input.
func (c *Client) CreateEmbedding(ctx context.Context, input []string) ([][]float32, error) {
	payload := &embeddingPayload{
		Model: c.EmbeddingModel,
		Input: input,
	}

	var response embeddingResponsePayload
	if err := c.post(ctx, "/embeddings", payload, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	embeddings := make([][]float32, 0, len(response.Data))
	for i := range response.Data {
		embeddings = append(embeddings, response.Data[i].Embedding)
	}
	return embeddings, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponsePayload struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete runs one system+user chat exchange and returns the assistant text.
// An empty model uses the client default.
func (c *Client) Complete(ctx context.Context, model, system, user string) (string, error) {
	if model == "" {
		model = c.Model
	}
	payload := &chatPayload{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var response chatResponsePayload
	if err := c.post(ctx, "/chat/completions", payload, &response); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return response.Choices[0].Message.Content, nil
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, suffix string, payload, response any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+suffix, bytes.NewReader(payloadBytes))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	c.setHeaders(req)

	r, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() {
		_ = r.Body.Close()
	}()

	if r.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API returned unexpected status code: %d", r.StatusCode)

		var errResp errorMessage
		if err := json.NewDecoder(r.Body).Decode(&errResp); err != nil {
			return errors.New(msg)
		}
		return errors.Errorf("%s: %s", msg, errResp.Error.Message)
	}

	if err := json.NewDecoder(r.Body).Decode(response); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
}
