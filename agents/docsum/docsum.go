// Package docsum implements the document summarizer agent. It fetches a PDF
// or plain document from a URL or base64 payload, extracts its text, and
// produces a summary or answers a question about it. A model client is
// optional; without one the agent degrades to truncation.
package docsum

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/ledongthuc/pdf"

	"github.com/prxs-ai/agentkit/agent"
	"github.com/prxs-ai/agentkit/pkg/llmutils"
)

var logger = xlog.NewPackageLogger("github.com/prxs-ai/agentkit", "docsum")

const (
	fetchTimeout = 20 * time.Second

	taskSummary = "summary"
	taskQA      = "qa"

	contextLimit  = 6000
	fallbackLimit = 500
)

// Completer produces one chat completion. pkg/aiclient satisfies it.
type Completer interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// Params is the compute input. Source is a URL or base64-encoded content.
type Params struct {
	Source   string `json:"source" validate:"required"`
	Task     string `json:"task,omitempty"`
	Question string `json:"question,omitempty"`
	Model    string `json:"model,omitempty"`
}

// Handler serves document summarization and QA.
type Handler struct {
	card *agent.ServiceCard
	spec agent.ParamSpec

	httpClient *http.Client
	completer  Completer
}

var _ agent.Handler = (*Handler)(nil)

// New returns the docsum handler with its static service card.
func New() (*Handler, error) {
	spec, err := agent.SpecOf(Params{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build param spec")
	}
	return &Handler{
		card: &agent.ServiceCard{
			Name:        "PDFSummarizer-v1",
			Description: "Fetches a document/PDF and returns summary or QA answer.",
			Inputs:      spec.Names(),
			CostPerOp:   0.7,
			Version:     "1.0.0",
		},
		spec:       spec.WithDefault("task", taskSummary),
		httpClient: &http.Client{Timeout: fetchTimeout},
	}, nil
}

func (h *Handler) WithHTTPClient(client *http.Client) *Handler {
	h.httpClient = client
	return h
}

// WithCompleter attaches a model client for real summaries.
func (h *Handler) WithCompleter(c Completer) *Handler {
	h.completer = c
	return h
}

func (h *Handler) Describe() *agent.ServiceCard { return h.card }

func (h *Handler) Spec() agent.ParamSpec { return h.spec }

func (h *Handler) Compute(ctx context.Context, params agent.Values) (any, error) {
	var p Params
	if err := agent.Decode(params, &p); err != nil {
		return nil, err
	}

	data, err := h.fetchSource(ctx, p.Source)
	if err != nil {
		return nil, err
	}

	text := extractText(data)
	if text == "" {
		return nil, errors.New("Failed to extract text")
	}

	task := strings.ToLower(p.Task)
	if task == "" {
		task = taskSummary
	}

	switch task {
	case taskQA:
		if p.Question == "" {
			return nil, errors.New("question is required for qa")
		}
		prompt := fmt.Sprintf("Answer based only on the context:\n\nContext:\n%s\n\nQuestion: %s",
			firstRunes(text, contextLimit), p.Question)
		answer := h.complete(ctx, p.Model, "You answer questions about documents.", prompt, text)
		return map[string]any{"answer": answer}, nil
	default:
		prompt := fmt.Sprintf("Summarize the following text in 5 bullet points:\n\n%s",
			firstRunes(text, contextLimit))
		summary := h.complete(ctx, p.Model, "You summarize documents.", prompt, text)
		return map[string]any{"summary": summary}, nil
	}
}

// complete calls the model; any failure falls back to truncated source text.
func (h *Handler) complete(ctx context.Context, model, system, prompt, text string) string {
	if h.completer == nil {
		return firstRunes(text, fallbackLimit)
	}
	out, err := h.completer.Complete(ctx, model, system, prompt)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "completion_failed", "err", err.Error())
		return firstRunes(text, fallbackLimit)
	}
	return llmutils.TrimBackticks(strings.TrimSpace(out))
}

func (h *Handler) fetchSource(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create request")
		}
		resp, err := h.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "Network error")
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("HTTP %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}

	data, err := base64.StdEncoding.DecodeString(source)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode base64 source")
	}
	return data, nil
}

func extractText(data []byte) string {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		if text, err := extractPDFText(data); err == nil && text != "" {
			return text
		}
	}
	if !utf8.Valid(data) {
		return ""
	}
	return string(data)
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "failed to open PDF")
	}
	body, err := reader.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "failed to extract PDF text")
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return "", errors.Wrap(err, "failed to read PDF text")
	}
	return buf.String(), nil
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
