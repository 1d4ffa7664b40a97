// Package webhook implements the generic HTTP caller agent. Unlike the other
// HTTP agents, an upstream error status is part of the result; only transport
// failures surface as errors.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/prxs-ai/agentkit/agent"
)

const requestTimeout = 20 * time.Second

// Params is the compute input. Body may be a string, sent verbatim, or any
// JSON value, sent as application/json.
type Params struct {
	URL     string            `json:"url" validate:"required"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// Result is the compute output.
type Result struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// Handler serves webhook calls.
type Handler struct {
	card *agent.ServiceCard
	spec agent.ParamSpec

	httpClient *http.Client
}

var _ agent.Handler = (*Handler)(nil)

// New returns the webhook handler with its static service card.
func New() (*Handler, error) {
	spec, err := agent.SpecOf(Params{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build param spec")
	}
	return &Handler{
		card: &agent.ServiceCard{
			Name:        "WebhookCaller-v1",
			Description: "Calls arbitrary HTTP endpoints and returns status/body.",
			Inputs:      spec.Names(),
			CostPerOp:   0.2,
			Version:     "1.0.0",
		},
		spec:       spec.WithDefault("method", http.MethodGet),
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

func (h *Handler) WithHTTPClient(client *http.Client) *Handler {
	h.httpClient = client
	return h
}

func (h *Handler) Describe() *agent.ServiceCard { return h.card }

func (h *Handler) Spec() agent.ParamSpec { return h.spec }

func (h *Handler) Compute(ctx context.Context, params agent.Values) (any, error) {
	var p Params
	if err := agent.Decode(params, &p); err != nil {
		return nil, err
	}

	method := strings.ToUpper(p.Method)
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := prepareBody(p.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, p.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Connection error")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &Result{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    string(raw),
	}, nil
}

func prepareBody(body any) (io.Reader, string, error) {
	switch t := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(t), "", nil
	default:
		bs, err := json.Marshal(t)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to marshal body")
		}
		return strings.NewReader(string(bs)), "application/json", nil
	}
}
