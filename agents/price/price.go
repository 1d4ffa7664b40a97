// Package price implements the Binance spot price agent.
package price

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"

	"github.com/prxs-ai/agentkit/agent"
)

const (
	defaultBaseURL = "https://api.binance.com"
	requestTimeout = 10 * time.Second
)

// Params is the compute input.
type Params struct {
	Symbol string `json:"symbol" validate:"required"`
}

// Handler serves spot price lookups.
type Handler struct {
	card *agent.ServiceCard
	spec agent.ParamSpec

	baseURL    string
	httpClient *http.Client
}

var _ agent.Handler = (*Handler)(nil)

// New returns the price handler with its static service card.
func New() (*Handler, error) {
	spec, err := agent.SpecOf(Params{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build param spec")
	}
	return &Handler{
		card: &agent.ServiceCard{
			Name:        "PriceOracle-v1",
			Description: "Returns the symbol price from Binance.",
			Inputs:      spec.Names(),
			CostPerOp:   0.5,
			Version:     "1.0.0",
		},
		spec:       spec,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

func (h *Handler) WithBaseURL(baseURL string) *Handler {
	h.baseURL = baseURL
	return h
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

	u := h.baseURL + "/api/v3/ticker/price?symbol=" + url.QueryEscape(p.Symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP connection error")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HTTP error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	priceVal := gjson.GetBytes(body, "price")
	if !priceVal.Exists() {
		return nil, errors.New("missing price in response")
	}
	return priceVal.String(), nil
}
