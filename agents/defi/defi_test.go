package defi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prxs-ai/agentkit/agent"
	"github.com/prxs-ai/agentkit/agents/defi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poolsPayload = `{
	"status": "success",
	"data": [
		{"pool": "p1", "project": "aave-v3", "symbol": "WETH", "chain": "Ethereum", "apy": 2.1234, "tvlUsd": 900000000, "apyBase": 2.1, "ilRisk": "no", "exposure": "single"},
		{"pool": "p2", "project": "lido", "symbol": "STETH-WETH", "chain": "Ethereum", "apy": 5.789, "tvlUsd": 120000, "ilRisk": "yes", "exposure": "multi"},
		{"pool": "p3", "project": "aave-v3", "symbol": "WETH", "chain": "Arbitrum", "apy": 3.5, "tvlUsd": 50000000},
		{"pool": "p4", "project": "dead", "symbol": "WETH", "chain": "Ethereum", "apy": null, "tvlUsd": 1000},
		{"pool": "p5", "project": "other", "symbol": "USDC", "chain": "Ethereum", "apy": 9.9, "tvlUsd": 1000000}
	]
}`

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pools", r.URL.Path)
		if hits != nil {
			hits.Add(1)
		}
		_, _ = w.Write([]byte(poolsPayload))
	}))
}

func Test_Card(t *testing.T) {
	h, err := defi.New()
	require.NoError(t, err)

	card := h.Describe()
	assert.Equal(t, "DefiAPY-v1", card.Name)
	assert.Equal(t, []string{"token_symbol", "chain", "min_tvl", "limit"}, card.Inputs)
}

func Test_Compute_FilterAndSort(t *testing.T) {
	srv := newServer(t, nil)
	defer srv.Close()

	h, err := defi.New()
	require.NoError(t, err)
	h = h.WithBaseURL(srv.URL)

	res, err := h.Compute(context.Background(), agent.Values{"token_symbol": "weth"})
	require.NoError(t, err)

	out, ok := res.(*defi.Result)
	require.True(t, ok)
	assert.Equal(t, "weth", out.Token)
	assert.Equal(t, 3, out.TotalFound)

	// APY descending, null APY and non-matching symbols excluded
	assert.Equal(t, "p2", out.Pools[0].PoolID)
	assert.Equal(t, "p3", out.Pools[1].PoolID)
	assert.Equal(t, "p1", out.Pools[2].PoolID)

	assert.Equal(t, 2.12, out.Pools[2].Apy)
	require.NotNil(t, out.Pools[2].AprBase)
	assert.Equal(t, 2.1, *out.Pools[2].AprBase)
	assert.Nil(t, out.Pools[0].AprBase)
	assert.Equal(t, "unknown", out.Pools[1].IlRisk)
}

func Test_Compute_ChainAndTVLFilters(t *testing.T) {
	srv := newServer(t, nil)
	defer srv.Close()

	h, err := defi.New()
	require.NoError(t, err)
	h = h.WithBaseURL(srv.URL)
	ctx := context.Background()

	res, err := h.Compute(ctx, agent.Values{"token_symbol": "WETH", "chain": "arbitrum"})
	require.NoError(t, err)
	out := res.(*defi.Result)
	require.Equal(t, 1, out.TotalFound)
	assert.Equal(t, "p3", out.Pools[0].PoolID)

	res, err = h.Compute(ctx, agent.Values{"token_symbol": "WETH", "min_tvl": float64(1000000)})
	require.NoError(t, err)
	out = res.(*defi.Result)
	require.Equal(t, 2, out.TotalFound)
	assert.Equal(t, "p3", out.Pools[0].PoolID)
	assert.Equal(t, "p1", out.Pools[1].PoolID)

	res, err = h.Compute(ctx, agent.Values{"token_symbol": "WETH", "limit": float64(1)})
	require.NoError(t, err)
	out = res.(*defi.Result)
	assert.Equal(t, 1, out.TotalFound)
}

func Test_Compute_CachesPoolDump(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	defer srv.Close()

	h, err := defi.New()
	require.NoError(t, err)
	h = h.WithBaseURL(srv.URL)
	ctx := context.Background()

	_, err = h.Compute(ctx, agent.Values{"token_symbol": "WETH"})
	require.NoError(t, err)
	_, err = h.Compute(ctx, agent.Values{"token_symbol": "USDC"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
}

func Test_Compute_Errors(t *testing.T) {
	h, err := defi.New()
	require.NoError(t, err)

	_, err = h.Compute(context.Background(), agent.Values{})
	require.Error(t, err)
	assert.Equal(t, "token_symbol is required", err.Error())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	h = h.WithBaseURL(srv.URL)
	_, err = h.Compute(context.Background(), agent.Values{"token_symbol": "WETH"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}
