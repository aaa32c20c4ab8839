package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/extract"
	"doctor_reputation/internal/pipeline"
)

const RateMDsID = "rms"

type RateMDsConfig struct {
	BaseURL     string
	SearchPages int // RateMDs search gets unreliable past the second page
	ReviewPages int
	MinReviews  int
}

// RateMDs is backed by the page-numbered JSON endpoints of ratemds.com.
type RateMDs struct {
	f    domain.Fetcher
	base *url.URL
	cfg  RateMDsConfig
}

func NewRateMDs(f domain.Fetcher, cfg RateMDsConfig) (*RateMDs, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, err
	}
	if cfg.SearchPages <= 0 {
		cfg.SearchPages = 2
	}
	if cfg.ReviewPages <= 0 {
		cfg.ReviewPages = 25
	}
	if cfg.MinReviews <= 0 {
		cfg.MinReviews = 1
	}
	return &RateMDs{f: f, base: base, cfg: cfg}, nil
}

func (r *RateMDs) endpoint(path string, q url.Values) string {
	u := r.base.ResolveReference(&url.URL{Path: path})
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *RateMDs) SearchProfiles(ctx context.Context, query string) ([]domain.ProfileRecord, error) {
	return r.profiles(ctx, url.Values{"text": {query}}, r.cfg.SearchPages)
}

// SearchSpeciality uses the dedicated specialty listing, first page only.
func (r *RateMDs) SearchSpeciality(ctx context.Context, speciality string) ([]domain.ProfileRecord, error) {
	return r.profiles(ctx, url.Values{"specialty": {speciality}}, 1)
}

func (r *RateMDs) profiles(ctx context.Context, filter url.Values, maxPages int) ([]domain.ProfileRecord, error) {
	fetch := func(ctx context.Context, c pipeline.Cursor) (pipeline.Batch[domain.ProfileRecord], error) {
		q := url.Values{"json": {"true"}, "page": {strconv.Itoa(c.Page)}}
		for k, v := range filter {
			q[k] = v
		}
		payload, err := getJSON(ctx, r.f, r.endpoint("best-doctors/", q))
		if err != nil {
			return pipeline.Batch[domain.ProfileRecord]{}, err
		}
		items, err := itemsAt(payload, "results")
		if err != nil {
			return pipeline.Batch[domain.ProfileRecord]{}, err
		}
		cands := make([]domain.ProfileRecord, 0, len(items))
		for _, m := range items {
			cands = append(cands, mapProfile(RateMDsID, m, r.base, r.base))
		}
		return pipeline.Batch[domain.ProfileRecord]{
			Items: cands,
			Next:  nextPage(c.Page, intAt(payload, "total_pages")),
			Total: intAt(payload, "count"),
		}, nil
	}

	res, err := pipeline.Collect(ctx, fetch, pipeline.Options{MaxPages: maxPages})
	if err != nil {
		if len(res.Items) == 0 || ctx.Err() != nil {
			return nil, err
		}
		log.Warn().Err(err).Str("source", RateMDsID).Int("pages", res.Pages).Msg("search pagination cut short")
	}
	return extract.Profiles(res.Items, extract.NewSeenKeys(), extract.Rules{MinReviews: r.cfg.MinReviews}), nil
}

// CollectReviews walks every review page of the doctor identified by slug, up to the page cap.
func (r *RateMDs) CollectReviews(ctx context.Context, slug string) ([]domain.ReviewRecord, error) {
	path := "doctor-ratings/" + strings.Trim(slug, "/") + "/"
	fetch := func(ctx context.Context, c pipeline.Cursor) (pipeline.Batch[keyedReview], error) {
		payload, err := getJSON(ctx, r.f, r.endpoint(path, url.Values{"json": {"true"}, "page": {strconv.Itoa(c.Page)}}))
		if err != nil {
			return pipeline.Batch[keyedReview]{}, err
		}
		items, err := itemsAt(payload, "results")
		if err != nil {
			return pipeline.Batch[keyedReview]{}, err
		}
		return pipeline.Batch[keyedReview]{
			Items: mapReviews(items),
			Next:  nextPage(c.Page, intAt(payload, "total_pages")),
		}, nil
	}

	res, err := pipeline.Collect(ctx, fetch, pipeline.Options{MaxPages: r.cfg.ReviewPages})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("source", RateMDsID).Int("pages", res.Pages).Str("stop", string(res.Stop)).Msg("reviews collected")
	return dedupReviews(res.Items, extract.NewSeenKeys()), nil
}

// nextPage returns nil once page reaches the reported page count.
func nextPage(page int, totalPages *int) *pipeline.Cursor {
	if totalPages != nil && page >= *totalPages {
		return nil
	}
	return &pipeline.Cursor{Page: page + 1}
}
