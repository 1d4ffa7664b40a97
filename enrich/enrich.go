// Package enrich attaches embedding vectors to service cards. Enrichment is
// strictly best effort: a missing token, an unreachable API, or a malformed
// response leaves the card unchanged and the agent fully operational.
package enrich

import (
	"context"
	"strings"
	"time"

	"github.com/effective-security/xlog"

	"github.com/prxs-ai/agentkit/agent"
)

var logger = xlog.NewPackageLogger("github.com/prxs-ai/agentkit", "enrich")

// embeddingTimeout bounds the one enrichment call made at startup.
const embeddingTimeout = 5 * time.Second

// Embedder produces one vector per input text.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input []string) ([][]float32, error)
}

// Card embeds the card's name, description, and tags and stores the vector
// on the card. Every failure is swallowed after a debug log; the embedding
// field is simply left absent.
func Card(ctx context.Context, e Embedder, card *agent.ServiceCard) {
	if e == nil || card == nil {
		return
	}

	text := cardText(card)

	ctx, cancel := context.WithTimeout(ctx, embeddingTimeout)
	defer cancel()

	embs, err := e.CreateEmbedding(ctx, []string{text})
	if err != nil {
		logger.KV(xlog.DEBUG, "agent", card.Name, "reason", "embedding_failed", "err", err.Error())
		return
	}
	if len(embs) == 0 || len(embs[0]) == 0 {
		logger.KV(xlog.DEBUG, "agent", card.Name, "reason", "empty_embedding")
		return
	}
	card.Embedding = embs[0]
}

func cardText(card *agent.ServiceCard) string {
	parts := []string{card.Name, card.Description}
	if len(card.Tags) > 0 {
		parts = append(parts, strings.Join(card.Tags, " "))
	}
	return strings.Join(parts, " ")
}
