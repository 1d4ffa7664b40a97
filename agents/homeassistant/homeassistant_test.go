package homeassistant_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prxs-ai/agentkit/agent"
	"github.com/prxs-ai/agentkit/agents/homeassistant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) *homeassistant.Handler {
	t.Helper()
	h, err := homeassistant.New()
	require.NoError(t, err)
	return h
}

func Test_Card(t *testing.T) {
	h := newHandler(t)

	card := h.Describe()
	assert.Equal(t, "HomeAssistant-v1", card.Name)
	assert.Equal(t,
		[]string{"base_url", "entity_id", "action", "value", "domain", "service", "token"},
		card.Inputs)
}

func Test_GetState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/states/light.kitchen", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"entity_id": "light.kitchen", "state": "on"}`))
	}))
	defer srv.Close()

	h := newHandler(t)

	// action defaults to get_state
	res, err := h.Compute(context.Background(), agent.Values{
		"base_url":  srv.URL,
		"entity_id": "light.kitchen",
		"token":     "tok",
	})
	require.NoError(t, err)

	out := res.(*homeassistant.Result)
	assert.Equal(t, http.StatusOK, out.Status)
	body := out.Body.(map[string]any)
	assert.Equal(t, "on", body["state"])
}

func Test_SetState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/states/light.kitchen", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "off", payload["state"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"state": "off"}`))
	}))
	defer srv.Close()

	h := newHandler(t)

	res, err := h.Compute(context.Background(), agent.Values{
		"base_url":  srv.URL,
		"entity_id": "light.kitchen",
		"action":    "set_state",
		"value":     "off",
		"token":     "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.(*homeassistant.Result).Status)
}

func Test_CallService_Defaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// domain inferred from the entity prefix, service defaults to turn_on
		require.Equal(t, "/api/services/light/turn_on", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "light.kitchen", payload["entity_id"])

		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	h := newHandler(t)

	_, err := h.Compute(context.Background(), agent.Values{
		"base_url":  srv.URL,
		"entity_id": "light.kitchen",
		"action":    "call_service",
		"token":     "tok",
	})
	require.NoError(t, err)
}

func Test_Errors(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	_, err := h.Compute(ctx, agent.Values{"entity_id": "light.kitchen", "token": "tok"})
	require.Error(t, err)
	assert.Equal(t, "base_url is required", err.Error())

	_, err = h.Compute(ctx, agent.Values{
		"base_url":  "http://127.0.0.1:1",
		"entity_id": "light.kitchen",
		"action":    "explode",
		"token":     "tok",
	})
	require.Error(t, err)
	assert.Equal(t, "Unknown action. Use get_state, set_state, or call_service.", err.Error())

	t.Setenv(homeassistant.EnvToken, "")
	_, err = h.Compute(ctx, agent.Values{
		"base_url":  "http://127.0.0.1:1",
		"entity_id": "light.kitchen",
	})
	require.Error(t, err)
	assert.Equal(t, "HOME_ASSISTANT_TOKEN is not set", err.Error())
}

func Test_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Invalid token"}`))
	}))
	defer srv.Close()

	h := newHandler(t)

	_, err := h.Compute(context.Background(), agent.Values{
		"base_url":  srv.URL,
		"entity_id": "light.kitchen",
		"token":     "bad",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}
