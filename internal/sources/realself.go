package sources

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/extract"
	"doctor_reputation/internal/pipeline"
)

const RealSelfID = "rs"

type RealSelfConfig struct {
	SearchURL      string // site search endpoint host
	APIURL         string // reviews API host
	SiteURL        string // profile links are relative to this
	ImageBaseURL   string
	ReviewPageSize int
	ReviewPages    int
	Pacing         time.Duration // the reviews API throttles bursts
	MinReviews     int
}

// RealSelf searches with one JSON call and reads reviews from an offset-paginated API.
type RealSelf struct {
	f                          domain.Fetcher
	search, api, site, imgBase *url.URL
	cfg                        RealSelfConfig
}

func NewRealSelf(f domain.Fetcher, cfg RealSelfConfig) (*RealSelf, error) {
	parse := func(s string) (*url.URL, error) { return url.Parse(strings.TrimRight(s, "/") + "/") }
	search, err := parse(cfg.SearchURL)
	if err != nil {
		return nil, err
	}
	api, err := parse(cfg.APIURL)
	if err != nil {
		return nil, err
	}
	site, err := parse(cfg.SiteURL)
	if err != nil {
		return nil, err
	}
	img, err := parse(cfg.ImageBaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.ReviewPageSize <= 0 {
		cfg.ReviewPageSize = 20
	}
	if cfg.ReviewPages <= 0 {
		cfg.ReviewPages = 15
	}
	if cfg.MinReviews <= 0 {
		cfg.MinReviews = 1
	}
	return &RealSelf{f: f, search: search, api: api, site: site, imgBase: img, cfg: cfg}, nil
}

func (r *RealSelf) SearchProfiles(ctx context.Context, query string) ([]domain.ProfileRecord, error) {
	u := r.search.ResolveReference(&url.URL{Path: "site_search", RawQuery: url.Values{"query": {query}}.Encode()})
	payload, err := getJSON(ctx, r.f, u.String())
	if err != nil {
		return nil, err
	}
	items, err := itemsAt(payload, "contents")
	if err != nil {
		return nil, err
	}
	cands := make([]domain.ProfileRecord, 0, len(items))
	for _, m := range items {
		cands = append(cands, mapProfile(RealSelfID, m, r.site, r.imgBase))
	}
	return extract.Profiles(cands, extract.NewSeenKeys(), extract.Rules{MinReviews: r.cfg.MinReviews}), nil
}

// SearchSpeciality has no dedicated endpoint on RealSelf; the site search handles specialty names.
func (r *RealSelf) SearchSpeciality(ctx context.Context, speciality string) ([]domain.ProfileRecord, error) {
	return r.SearchProfiles(ctx, speciality)
}

// CollectReviews walks the reviews API by offset, pausing between calls.
func (r *RealSelf) CollectReviews(ctx context.Context, providerID string) ([]domain.ReviewRecord, error) {
	limit := r.cfg.ReviewPageSize
	fetch := func(ctx context.Context, c pipeline.Cursor) (pipeline.Batch[keyedReview], error) {
		q := url.Values{
			"provider_id": {providerID},
			"offset":      {strconv.Itoa(c.Offset)},
			"limit":       {strconv.Itoa(limit)},
		}
		u := r.api.ResolveReference(&url.URL{Path: "reviews", RawQuery: q.Encode()})
		payload, err := getJSON(ctx, r.f, u.String())
		if err != nil {
			return pipeline.Batch[keyedReview]{}, err
		}
		items, err := itemsAt(payload, "reviews")
		if err != nil {
			return pipeline.Batch[keyedReview]{}, err
		}
		return pipeline.Batch[keyedReview]{
			Items: mapReviews(items),
			Next:  &pipeline.Cursor{Offset: c.Offset + len(items)},
			Total: intAt(payload, "total"),
		}, nil
	}

	res, err := pipeline.Collect(ctx, fetch, pipeline.Options{
		MaxPages:        r.cfg.ReviewPages,
		MinItemsPerPage: limit,
		PacingDelay:     r.cfg.Pacing,
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("source", RealSelfID).Int("pages", res.Pages).Str("stop", string(res.Stop)).Msg("reviews collected")
	return dedupReviews(res.Items, extract.NewSeenKeys()), nil
}
