package aiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prxs-ai/agentkit/pkg/aiclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_CreateEmbedding(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/embeddings", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{"data": [{"embedding": [0.1, 0.2, 0.3], "index": 0}]}`))
	}))
	defer srv.Close()

	c := aiclient.New("test-token", aiclient.WithBaseURL(srv.URL))

	embs, err := c.CreateEmbedding(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, embs, 1)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, embs[0])
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, aiclient.DefaultEmbeddingModel, gotBody["model"])
}

func Test_CreateEmbedding_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	c := aiclient.New("test-token", aiclient.WithBaseURL(srv.URL))

	_, err := c.CreateEmbedding(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, aiclient.ErrEmptyResponse)
}

func Test_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "a summary"}}]}`))
	}))
	defer srv.Close()

	c := aiclient.New("test-token", aiclient.WithBaseURL(srv.URL))

	text, err := c.Complete(context.Background(), "", "you summarize", "long text")
	require.NoError(t, err)
	assert.Equal(t, "a summary", text)
}

func Test_Complete_ModelOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body["model"])

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer srv.Close()

	c := aiclient.New("test-token", aiclient.WithBaseURL(srv.URL))

	_, err := c.Complete(context.Background(), "gpt-4o", "s", "u")
	require.NoError(t, err)
}

func Test_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := aiclient.New("bad", aiclient.WithBaseURL(srv.URL))

	_, err := c.Complete(context.Background(), "", "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}
