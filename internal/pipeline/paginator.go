// Package pipeline drives source adapters: pagination, source registry and fan-out/fallback.
package pipeline

import (
	"context"
	"time"
)

// Cursor addresses one batch. Page-numbered adapters use Page (starting at 1),
// offset adapters use Offset (starting at 0).
type Cursor struct {
	Page   int
	Offset int
}

// Start is the cursor of the first batch.
var Start = Cursor{Page: 1, Offset: 0}

// Batch is one adapter response. Next is nil when the adapter knows there is nothing more;
// Total is nil when the upstream does not report a total.
type Batch[T any] struct {
	Items []T
	Next  *Cursor
	Total *int
}

// BatchFunc is the fetchBatch capability of a source adapter.
type BatchFunc[T any] func(ctx context.Context, c Cursor) (Batch[T], error)

type Options struct {
	MaxPages        int           // hard cap, <= 0 means one page
	MinItemsPerPage int           // a shorter page is the last one, 0 disables
	PacingDelay     time.Duration // wait between successive calls
}

// StopReason tells why a collection ended.
type StopReason string

const (
	StopEmptyPage StopReason = "empty_page"
	StopShortPage StopReason = "short_page"
	StopPageCap   StopReason = "page_cap"
	StopTotal     StopReason = "total_reached"
	StopExhausted StopReason = "exhausted"
	StopError     StopReason = "error"
	StopCancelled StopReason = "cancelled"
)

// Result of one collection. Items holds everything gathered before the stop, even on error.
type Result[T any] struct {
	Items []T
	Pages int
	Stop  StopReason
}

type state int

const (
	fetching state = iota
	evaluating
	done
)

// Collect walks an adapter sequentially until a termination predicate holds.
// The returned error is the adapter's (or the context's); Items are kept either way.
func Collect[T any](ctx context.Context, fetch BatchFunc[T], o Options) (Result[T], error) {
	maxPages := o.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var (
		res    Result[T]
		cur    = Start
		batch  Batch[T]
		err    error
		st     = fetching
		placed int
	)

	for st != done {
		switch st {
		case fetching:
			if res.Pages > 0 && !sleepCtx(ctx, o.PacingDelay) {
				res.Stop, err = StopCancelled, ctx.Err()
				st = done
				continue
			}
			batch, err = fetch(ctx, cur)
			if err != nil {
				res.Stop = StopError
				if ctx.Err() != nil {
					res.Stop = StopCancelled
				}
				st = done
				continue
			}
			res.Pages++
			st = evaluating

		case evaluating:
			n := len(batch.Items)
			res.Items = append(res.Items, batch.Items...)
			placed += n
			st = done
			switch {
			case n == 0:
				res.Stop = StopEmptyPage
			case batch.Total != nil && placed >= *batch.Total:
				res.Stop = StopTotal
			case res.Pages >= maxPages:
				res.Stop = StopPageCap
			case o.MinItemsPerPage > 0 && n < o.MinItemsPerPage:
				res.Stop = StopShortPage
			case batch.Next == nil:
				res.Stop = StopExhausted
			default:
				cur = *batch.Next
				st = fetching
			}
		}
	}
	return res, err
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
