// Package scraper implements the web scraping agent. It fetches a URL and
// returns extracted text, parsed JSON, or the raw body. Screenshot capture
// is intentionally not supported.
package scraper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"

	"github.com/prxs-ai/agentkit/agent"
)

const (
	requestTimeout = 20 * time.Second

	formatText       = "text"
	formatJSON       = "json"
	formatRaw        = "raw"
	formatScreenshot = "screenshot"

	fullTextLimit = 5000
	excerptRadius = 80
)

// Params is the compute input.
type Params struct {
	URL      string `json:"url" validate:"required"`
	Selector string `json:"selector,omitempty"`
	Format   string `json:"format,omitempty"`
}

// Handler serves page fetches.
type Handler struct {
	card *agent.ServiceCard
	spec agent.ParamSpec

	httpClient *http.Client
}

var _ agent.Handler = (*Handler)(nil)

// New returns the scraper handler with its static service card.
func New() (*Handler, error) {
	spec, err := agent.SpecOf(Params{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build param spec")
	}
	return &Handler{
		card: &agent.ServiceCard{
			Name:        "WebScraper-v1",
			Description: "Fetches a URL and returns text/json content; screenshot is placeholder.",
			Inputs:      spec.Names(),
			CostPerOp:   0.3,
			Version:     "1.0.0",
		},
		spec:       spec.WithDefault("format", formatText),
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

	format := strings.ToLower(p.Format)
	if format == "" {
		format = formatText
	}
	if format == formatScreenshot {
		return nil, errors.New("Screenshot not supported; use a headless browser provider.")
	}

	raw, err := h.fetch(ctx, p.URL)
	if err != nil {
		return nil, err
	}

	switch format {
	case formatJSON:
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, errors.Wrap(err, "failed to decode JSON body")
		}
		return parsed, nil
	case formatRaw:
		return string(raw), nil
	default:
		return textResult(string(raw), p.Selector), nil
	}
}

func (h *Handler) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "agentkit-scraper")

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
	return body, nil
}

func textResult(page, selector string) map[string]any {
	text := extractText(page)

	res := map[string]any{
		"full_text": truncate(text, fullTextLimit),
	}
	if selector == "" {
		return res
	}

	idx := strings.Index(strings.ToLower(text), strings.ToLower(selector))
	excerpt := ""
	if idx >= 0 {
		lo := max(0, idx-excerptRadius)
		hi := min(len(text), idx+excerptRadius)
		excerpt = text[lo:hi]
	}
	res["excerpt"] = excerpt
	return res
}

// extractText collects the visible text of the page, skipping script and
// style elements. A parse failure yields whatever the tokenizer produced.
func extractText(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return strings.TrimSpace(page)
	}

	var chunks []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				chunks = append(chunks, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(chunks, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
