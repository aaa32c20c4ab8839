package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"doctor_reputation/internal/domain"
)

type WarmResult struct {
	OK     int64
	Failed int64
}

// Warm executes reqs with at most workers in flight so their results land in the cache.
// With refresh set, each entry is evicted first. Failures are logged and counted, never fatal.
func (s *Service) Warm(ctx context.Context, reqs []domain.Request, workers int, refresh bool) WarmResult {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg      sync.WaitGroup
		ok, bad atomic.Int64
	)

	for _, req := range reqs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("warm cancelled")
			break
		}

		wg.Add(1)
		go func(req domain.Request) {
			defer wg.Done()
			defer sem.Release(1)

			if refresh {
				s.Invalidate(ctx, req)
			}
			resp := s.Execute(ctx, req)
			if !resp.Success {
				bad.Add(1)
				log.Warn().Str("mode", string(req.Mode)).Str("source", req.Source).Str("query", req.Query).
					Str("kind", string(resp.ErrorKind)).Msg(resp.Message)
				return
			}
			ok.Add(1)
			log.Info().Str("mode", string(req.Mode)).Str("source", resp.Source).Str("query", req.Query).Msg("warm ok")
		}(req)
	}

	wg.Wait()
	return WarmResult{OK: ok.Load(), Failed: bad.Load()}
}
