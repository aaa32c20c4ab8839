package app

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"doctor_reputation/internal/domain"
)

const (
	keyPrefix = "docrep:v1:"
	// DefaultTTL is how long a computed result is served from cache.
	DefaultTTL = time.Hour
	maxPayload = 1_000_000
)

// Key builds the canonical cache key for a request. Parameter order never matters
// and surrounding whitespace is ignored.
func Key(mode domain.Mode, params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		v.Set(strings.ToLower(strings.TrimSpace(k)), strings.Join(strings.Fields(val), " "))
	}
	v.Set("mode", string(mode))
	return keyPrefix + v.Encode()
}

// Gateway is the only writer to the shared cache. Store failures are logged and
// treated as misses so a request always falls through to computation.
type Gateway struct {
	c   domain.Cache
	ttl time.Duration
}

// NewGateway wraps c; a nil cache turns every lookup into a miss.
func NewGateway(c domain.Cache, ttl time.Duration) *Gateway {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gateway{c: c, ttl: ttl}
}

// Get decodes the entry at key into dst. Entries that no longer decode are dropped.
func (g *Gateway) Get(ctx context.Context, key string, dst any) bool {
	if g == nil || g.c == nil {
		return false
	}
	b, ok, err := g.c.Get(ctx, key)
	if err != nil {
		g.warn(err, key, "cache get failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		g.Del(ctx, key)
		return false
	}
	return true
}

// Set stores v in full. Nothing is written once ctx is done, so abandoned requests leave no entry.
func (g *Gateway) Set(ctx context.Context, key string, v any) {
	if g == nil || g.c == nil || ctx.Err() != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("cache payload not encodable")
		return
	}
	if len(b) >= maxPayload {
		log.Warn().Str("key", key).Int("bytes", len(b)).Msg("payload too large to cache")
		return
	}
	if err := g.c.Set(ctx, key, b, g.ttl); err != nil {
		g.warn(err, key, "cache set failed")
	}
}

func (g *Gateway) Del(ctx context.Context, key string) {
	if g == nil || g.c == nil {
		return
	}
	if err := g.c.Del(ctx, key); err != nil {
		g.warn(err, key, "cache delete failed")
	}
}

func (g *Gateway) warn(err error, key, msg string) {
	log.Warn().Err(err).Str("kind", string(domain.KindCacheUnavailable)).Str("key", key).Msg(msg)
}

// cached runs compute on a miss and stores its result on success.
func cached[T any](ctx context.Context, g *Gateway, key string, compute func(context.Context) (T, error)) (T, bool, error) {
	var out T
	if g.Get(ctx, key, &out) {
		return out, true, nil
	}
	out, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	g.Set(ctx, key, out)
	return out, false, nil
}
