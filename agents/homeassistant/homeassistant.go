// Package homeassistant implements the Home Assistant REST agent. It reads
// or sets entity state and calls services through the HA HTTP API, using a
// long-lived access token from the request or the environment.
package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/prxs-ai/agentkit/agent"
)

// EnvToken is the fallback token variable, read at compute time.
const EnvToken = "HOME_ASSISTANT_TOKEN"

const (
	requestTimeout = 15 * time.Second

	actionGetState    = "get_state"
	actionSetState    = "set_state"
	actionCallService = "call_service"

	defaultService = "turn_on"
)

// Params is the compute input.
type Params struct {
	BaseURL  string `json:"base_url" validate:"required"`
	EntityID string `json:"entity_id" validate:"required"`
	Action   string `json:"action,omitempty"`
	Value    any    `json:"value,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Service  string `json:"service,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Result is the compute output.
type Result struct {
	Status int `json:"status"`
	Body   any `json:"body"`
}

// Handler serves Home Assistant entity operations.
type Handler struct {
	card *agent.ServiceCard
	spec agent.ParamSpec

	httpClient *http.Client
}

var _ agent.Handler = (*Handler)(nil)

// New returns the homeassistant handler with its static service card.
func New() (*Handler, error) {
	spec, err := agent.SpecOf(Params{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build param spec")
	}
	return &Handler{
		card: &agent.ServiceCard{
			Name:        "HomeAssistant-v1",
			Description: "Reads or sets entity state via Home Assistant REST API.",
			Inputs:      spec.Names(),
			CostPerOp:   0.4,
			Version:     "1.0.0",
		},
		spec:       spec.WithDefault("action", actionGetState),
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

	token := p.Token
	if token == "" {
		token = os.Getenv(EnvToken)
	}
	if token == "" {
		return nil, errors.New("HOME_ASSISTANT_TOKEN is not set")
	}

	base := strings.TrimRight(p.BaseURL, "/")
	action := strings.ToLower(p.Action)
	if action == "" {
		action = actionGetState
	}

	switch action {
	case actionGetState:
		return h.request(ctx, token, http.MethodGet, base+"/api/states/"+p.EntityID, nil)
	case actionSetState:
		return h.request(ctx, token, http.MethodPost, base+"/api/states/"+p.EntityID, map[string]any{"state": p.Value})
	case actionCallService:
		domain := p.Domain
		if domain == "" {
			domain, _, _ = strings.Cut(p.EntityID, ".")
		}
		service := p.Service
		if service == "" {
			service = defaultService
		}
		payload := map[string]any{"entity_id": p.EntityID}
		if p.Value != nil {
			payload["value"] = p.Value
		}
		return h.request(ctx, token, http.MethodPost, base+"/api/services/"+domain+"/"+service, payload)
	default:
		return nil, errors.New("Unknown action. Use get_state, set_state, or call_service.")
	}
}

func (h *Handler) request(ctx context.Context, token, method, url string, payload any) (*Result, error) {
	var body io.Reader
	if payload != nil {
		bs, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal payload")
		}
		body = bytes.NewReader(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Network error")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Errorf("HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var parsed any = map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, errors.Wrap(err, "failed to decode response")
		}
	}
	return &Result{Status: resp.StatusCode, Body: parsed}, nil
}
