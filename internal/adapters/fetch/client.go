// Package fetch is the document fetcher used by every source adapter.
package fetch

import (
	"context"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"doctor_reputation/internal/adapters/observability"
	"doctor_reputation/internal/domain"
)

type Client struct {
	hc *resty.Client
	rl *rate.Limiter
}

// New builds a fetcher with a client-side rate limit shared by all upstreams.
// Failed calls are never retried: a failure is reported once and the caller decides.
func New(rps int, timeout time.Duration) *Client {
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	hc := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))
	return &Client{hc: hc, rl: rate.NewLimiter(rate.Limit(rps), rps)}
}

// Fetch issues a GET. Any status is returned as a Document; only transport failures are errors.
func (c *Client) Fetch(ctx context.Context, u string, headers map[string]string) (domain.Document, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Document{}, err
	}

	host := u
	if pu, err := url.Parse(u); err == nil {
		host = pu.Host
	}

	start := time.Now()
	resp, err := c.hc.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(u)
	if err != nil {
		observability.ObserveExternal(host, "GET", 0, time.Since(start))
		log.Debug().Err(err).Str("url", u).Msg("fetch failed")
		return domain.Document{}, err
	}
	observability.ObserveExternal(host, "GET", resp.StatusCode(), time.Since(start))
	return domain.Document{URL: u, Status: resp.StatusCode(), Body: resp.Body()}, nil
}
