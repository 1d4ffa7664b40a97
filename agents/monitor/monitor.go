// Package monitor implements the availability check agent: ICMP ping via the
// system binary, HTTP latency probes, and TLS certificate expiry checks.
package monitor

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/prxs-ai/agentkit/agent"
)

const (
	kindPing = "ping"
	kindHTTP = "http"
	kindTLS  = "tls"

	pingTimeout = 15 * time.Second
	httpTimeout = 10 * time.Second
	tlsTimeout  = 5 * time.Second

	bodySnippetLimit = 2000
)

// Params is the compute input.
type Params struct {
	Target      string  `json:"target" validate:"required"`
	Kind        string  `json:"kind,omitempty"`
	ThresholdMs float64 `json:"threshold_ms,omitempty"`
}

// Handler serves availability checks.
type Handler struct {
	card *agent.ServiceCard
	spec agent.ParamSpec

	httpClient *http.Client
}

var _ agent.Handler = (*Handler)(nil)

// New returns the monitor handler with its static service card.
func New() (*Handler, error) {
	spec, err := agent.SpecOf(Params{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build param spec")
	}
	return &Handler{
		card: &agent.ServiceCard{
			Name:        "Monitor-v1",
			Description: "Performs ping, HTTP, or TLS expiry checks.",
			Inputs:      spec.Names(),
			CostPerOp:   0.2,
			Version:     "1.0.0",
		},
		spec:       spec.WithDefault("kind", kindPing),
		httpClient: &http.Client{Timeout: httpTimeout},
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

	kind := strings.ToLower(p.Kind)
	if kind == "" {
		kind = kindPing
	}

	var result map[string]any
	var err error
	switch kind {
	case kindPing:
		result, err = doPing(ctx, p.Target)
	case kindHTTP:
		result, err = h.doHTTP(ctx, p.Target)
	case kindTLS:
		result, err = doTLS(p.Target)
	default:
		return nil, errors.New("kind must be ping/http/tls")
	}
	if err != nil {
		return nil, err
	}

	if p.ThresholdMs > 0 {
		if latency, ok := result["latency_ms"].(float64); ok {
			result["slow"] = latency > p.ThresholdMs
		}
	}
	return result, nil
}

func doPing(ctx context.Context, target string) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ping", "-c", "3", target)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			return nil, errors.Wrap(err, "failed to run ping")
		}
	}
	return map[string]any{
		"code":   code,
		"stdout": stdout.String(),
		"stderr": stderr.String(),
	}, nil
}

func (h *Handler) doHTTP(ctx context.Context, target string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "agentkit-monitor")

	start := time.Now()
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP error")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}
	latency := float64(time.Since(start).Microseconds()) / 1000

	if resp.StatusCode >= 400 {
		return map[string]any{
			"status":     resp.StatusCode,
			"latency_ms": latency,
			"error":      string(body),
		}, nil
	}
	snippet := string(body)
	if len(snippet) > bodySnippetLimit {
		snippet = snippet[:bodySnippetLimit]
	}
	return map[string]any{
		"status":       resp.StatusCode,
		"latency_ms":   latency,
		"body_snippet": snippet,
	}, nil
}

func doTLS(target string) (map[string]any, error) {
	host, port := target, "443"
	if h, p, err := net.SplitHostPort(target); err == nil {
		host, port = h, p
	}

	conn, err := tls.DialWithDialer(
		&net.Dialer{Timeout: tlsTimeout},
		"tcp", net.JoinHostPort(host, port),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return nil, errors.Wrap(err, "TLS connection failed")
	}
	defer func() {
		_ = conn.Close()
	}()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, errors.New("no peer certificate")
	}

	expiresAt := certs[0].NotAfter
	daysLeft := int(time.Until(expiresAt).Hours() / 24)
	return map[string]any{
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
		"days_left":  daysLeft,
	}, nil
}
