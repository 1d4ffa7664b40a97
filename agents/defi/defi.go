// Package defi implements the DeFi yield lookup agent. It queries the
// DefiLlama pools endpoint and returns the best pools by APY for a token.
// The full pool dump is several megabytes, so it is kept in a TTL cache
// between requests.
package defi

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"

	"github.com/prxs-ai/agentkit/agent"
	"github.com/prxs-ai/agentkit/store"
)

var logger = xlog.NewPackageLogger("github.com/prxs-ai/agentkit", "defi")

const (
	defaultBaseURL = "https://yields.llama.fi"
	defaultLimit   = 5
	requestTimeout = 30 * time.Second

	poolsCacheKey = "defillama/pools"
	poolsCacheTTL = 5 * time.Minute
)

// Params is the compute input.
type Params struct {
	TokenSymbol string  `json:"token_symbol" validate:"required"`
	Chain       string  `json:"chain,omitempty"`
	MinTVL      float64 `json:"min_tvl,omitempty"`
	Limit       int     `json:"limit,omitempty"`
}

// Pool is one entry of the DefiLlama pool dump.
type Pool struct {
	Pool      string   `json:"pool"`
	Project   string   `json:"project"`
	Symbol    string   `json:"symbol"`
	Chain     string   `json:"chain"`
	Apy       *float64 `json:"apy"`
	TvlUsd    float64  `json:"tvlUsd"`
	ApyBase   *float64 `json:"apyBase"`
	ApyReward *float64 `json:"apyReward"`
	IlRisk    string   `json:"ilRisk"`
	Exposure  string   `json:"exposure"`
}

// PoolResult is one formatted result entry.
type PoolResult struct {
	PoolID    string   `json:"pool_id"`
	Project   string   `json:"project"`
	Symbol    string   `json:"symbol"`
	Chain     string   `json:"chain"`
	Apy       float64  `json:"apy"`
	TvlUsd    float64  `json:"tvl_usd"`
	AprBase   *float64 `json:"apr_base"`
	AprReward *float64 `json:"apr_reward"`
	IlRisk    string   `json:"il_risk"`
	Exposure  string   `json:"exposure"`
}

// Result is the compute output.
type Result struct {
	Token      string       `json:"token"`
	Chain      string       `json:"chain"`
	MinTVL     float64      `json:"min_tvl"`
	TotalFound int          `json:"total_found"`
	Pools      []PoolResult `json:"pools"`
}

// Handler serves DeFi pool lookups.
type Handler struct {
	card *agent.ServiceCard
	spec agent.ParamSpec

	baseURL    string
	httpClient *http.Client
	cache      store.Cache
	cacheTTL   time.Duration
}

var _ agent.Handler = (*Handler)(nil)

// New returns the defi handler backed by an in-process cache.
func New() (*Handler, error) {
	spec, err := agent.SpecOf(Params{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build param spec")
	}
	return &Handler{
		card: &agent.ServiceCard{
			Name:        "DefiAPY-v1",
			Description: "Finds the best DeFi pools by APY for a given token across multiple chains using DefiLlama.",
			Inputs:      spec.Names(),
			CostPerOp:   0.3,
			Version:     "1.0.0",
			Tags:        []string{"defi", "apy", "yield", "farming", "pools", "defillama"},
		},
		spec:       spec.WithDefault("limit", float64(defaultLimit)),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		cache:      store.NewMemoryCache(),
		cacheTTL:   poolsCacheTTL,
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

// WithCache replaces the pool dump cache, e.g. with the shared Redis cache.
func (h *Handler) WithCache(c store.Cache) *Handler {
	h.cache = c
	return h
}

// WithCacheTTL overrides how long a pool dump stays fresh.
func (h *Handler) WithCacheTTL(ttl time.Duration) *Handler {
	if ttl > 0 {
		h.cacheTTL = ttl
	}
	return h
}

func (h *Handler) Describe() *agent.ServiceCard { return h.card }

func (h *Handler) Spec() agent.ParamSpec { return h.spec }

func (h *Handler) Compute(ctx context.Context, params agent.Values) (any, error) {
	var p Params
	if err := agent.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}

	pools, err := h.fetchPools(ctx)
	if err != nil {
		return nil, err
	}

	top := filterAndSortPools(pools, p)
	formatted := make([]PoolResult, 0, len(top))
	for _, pool := range top {
		formatted = append(formatted, formatPool(pool))
	}

	return &Result{
		Token:      p.TokenSymbol,
		Chain:      p.Chain,
		MinTVL:     p.MinTVL,
		TotalFound: len(formatted),
		Pools:      formatted,
	}, nil
}

func (h *Handler) fetchPools(ctx context.Context) ([]Pool, error) {
	if data, ok, err := h.cache.Get(ctx, poolsCacheKey); err == nil && ok {
		var pools []Pool
		if err := json.Unmarshal(data, &pools); err == nil {
			return pools, nil
		}
		// stale or corrupt entry, refetch
		_ = h.cache.Delete(ctx, poolsCacheKey)
	} else if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "cache_get_failed", "err", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/pools", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "agentkit-defi")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Network error")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data []Pool `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode pools")
	}

	if data, err := json.Marshal(payload.Data); err == nil {
		if err := h.cache.Set(ctx, poolsCacheKey, data, h.cacheTTL); err != nil {
			logger.ContextKV(ctx, xlog.DEBUG, "reason", "cache_set_failed", "err", err.Error())
		}
	}
	return payload.Data, nil
}

func filterAndSortPools(pools []Pool, p Params) []Pool {
	tokenLower := strings.ToLower(p.TokenSymbol)
	chainLower := strings.ToLower(p.Chain)

	var filtered []Pool
	for _, pool := range pools {
		if pool.Symbol == "" || pool.Apy == nil {
			continue
		}
		if !strings.Contains(strings.ToLower(pool.Symbol), tokenLower) {
			continue
		}
		if chainLower != "" && strings.ToLower(pool.Chain) != chainLower {
			continue
		}
		if p.MinTVL > 0 && pool.TvlUsd < p.MinTVL {
			continue
		}
		filtered = append(filtered, pool)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return *filtered[i].Apy > *filtered[j].Apy
	})

	if len(filtered) > p.Limit {
		filtered = filtered[:p.Limit]
	}
	return filtered
}

func formatPool(pool Pool) PoolResult {
	res := PoolResult{
		PoolID:   pool.Pool,
		Project:  pool.Project,
		Symbol:   pool.Symbol,
		Chain:    pool.Chain,
		Apy:      round2(*pool.Apy),
		TvlUsd:   round2(pool.TvlUsd),
		IlRisk:   valueOr(pool.IlRisk, "unknown"),
		Exposure: valueOr(pool.Exposure, "unknown"),
	}
	if pool.ApyBase != nil {
		v := round2(*pool.ApyBase)
		res.AprBase = &v
	}
	if pool.ApyReward != nil {
		v := round2(*pool.ApyReward)
		res.AprReward = &v
	}
	return res
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
