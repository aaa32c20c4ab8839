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

const IWGCID = "iwgc"

type IWGCConfig struct {
	BaseURL       string
	ProfilePath   string // path prefix of doctor pages, e.g. "doctors"
	MaxExpansions int    // "show all" pages followed per search
	ReviewPages   int
	MinReviews    int
}

// IWGC scrapes the iwantgreatcare.org HTML pages.
type IWGC struct {
	f    domain.Fetcher
	base *url.URL
	cfg  IWGCConfig
}

func NewIWGC(f domain.Fetcher, cfg IWGCConfig) (*IWGC, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, err
	}
	if cfg.ProfilePath == "" {
		cfg.ProfilePath = "doctors"
	}
	if cfg.MaxExpansions <= 0 {
		cfg.MaxExpansions = 5
	}
	if cfg.ReviewPages <= 0 {
		cfg.ReviewPages = 10
	}
	if cfg.MinReviews <= 0 {
		cfg.MinReviews = 2
	}
	return &IWGC{f: f, base: base, cfg: cfg}, nil
}

// SearchProfiles extracts the initial results page, then every "show all" expansion page.
// The same profile often appears on both; the request-scoped seen set drops the repeats.
func (s *IWGC) SearchProfiles(ctx context.Context, query string) ([]domain.ProfileRecord, error) {
	u := s.base.ResolveReference(&url.URL{Path: "search", RawQuery: url.Values{"search": {query}, "jsno": {"true"}}.Encode()})
	doc, err := getHTML(ctx, s.f, u.String())
	if err != nil {
		return nil, err
	}

	seen := extract.NewSeenKeys()
	rules := extract.Rules{MinReviews: s.cfg.MinReviews}
	out := extract.ProfilesFromHTML(doc, u, IWGCID, seen, rules)

	links := extract.ShowAllLinks(doc, u)
	if len(links) > s.cfg.MaxExpansions {
		links = links[:s.cfg.MaxExpansions]
	}
	for _, link := range links {
		more, err := getHTML(ctx, s.f, link)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("source", IWGCID).Str("url", link).Msg("show-all page failed, skipping")
			continue
		}
		lu, _ := url.Parse(link)
		out = append(out, extract.ProfilesFromHTML(more, lu, IWGCID, seen, rules)...)
	}
	return out, nil
}

func (s *IWGC) SearchSpeciality(ctx context.Context, speciality string) ([]domain.ProfileRecord, error) {
	return s.SearchProfiles(ctx, speciality)
}

// CollectReviews walks the numbered review pages of one doctor until an empty page or the cap.
// A page that yields no review we have not seen already counts as empty, which stops sites
// that ignore the page parameter.
func (s *IWGC) CollectReviews(ctx context.Context, slug string) ([]domain.ReviewRecord, error) {
	path := strings.Trim(s.cfg.ProfilePath, "/") + "/" + strings.Trim(slug, "/")
	seen := extract.NewSeenKeys()
	fetch := func(ctx context.Context, c pipeline.Cursor) (pipeline.Batch[domain.ReviewRecord], error) {
		u := s.base.ResolveReference(&url.URL{Path: path, RawQuery: url.Values{"page": {strconv.Itoa(c.Page)}}.Encode()})
		doc, err := getHTML(ctx, s.f, u.String())
		if err != nil {
			return pipeline.Batch[domain.ReviewRecord]{}, err
		}
		page := extract.ReviewsFromHTML(doc)
		keyed := make([]keyedReview, 0, len(page))
		for _, rv := range page {
			keyed = append(keyed, keyedReview{key: reviewKey("", rv), rv: rv})
		}
		return pipeline.Batch[domain.ReviewRecord]{
			Items: dedupReviews(keyed, seen),
			Next:  &pipeline.Cursor{Page: c.Page + 1},
		}, nil
	}

	res, err := pipeline.Collect(ctx, fetch, pipeline.Options{MaxPages: s.cfg.ReviewPages})
	if err != nil {
		return nil, err
	}
	log.Debug().Str("source", IWGCID).Int("pages", res.Pages).Str("stop", string(res.Stop)).Msg("reviews collected")
	return res.Items, nil
}
