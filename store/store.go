// Package store provides a small TTL cache used by agents to avoid
// re-fetching slow upstream payloads, such as full DeFi protocol dumps.
package store

import (
	"context"
	"time"

	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/prxs-ai/agentkit", "store")

// Cache stores opaque byte values under string keys with an expiry.
// A miss is not an error; Get reports it with ok=false.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
