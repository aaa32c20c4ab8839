package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/pipeline"
	"doctor_reputation/internal/report"
)

// Service answers search, speciality and report requests through the cache gateway.
type Service struct {
	agg     *pipeline.Aggregator
	synth   *report.Synthesizer
	cache   *Gateway
	archive domain.ReportArchive
}

// NewService wires the pipeline. archive may be nil.
func NewService(agg *pipeline.Aggregator, synth *report.Synthesizer, cache *Gateway, archive domain.ReportArchive) *Service {
	return &Service{agg: agg, synth: synth, cache: cache, archive: archive}
}

// Search returns the first non-empty result in source priority order.
func (s *Service) Search(ctx context.Context, query string) (domain.AggregationResult, error) {
	req := domain.Request{Mode: domain.ModeSearch, Query: normalize(query)}
	if err := req.Validate(); err != nil {
		return domain.AggregationResult{}, err
	}
	key := KeyFor(req)

	// a cached result from a source switched off since is not served
	var hit domain.AggregationResult
	if s.cache.Get(ctx, key, &hit) {
		if _, err := s.agg.Registry().Lookup(hit.SourceID); err == nil {
			log.Debug().Str("key", key).Msg("cache hit")
			return hit, nil
		}
		s.cache.Del(ctx, key)
	}

	res, err := s.agg.Search(ctx, req.Query)
	if err != nil {
		return domain.AggregationResult{}, err
	}
	s.cache.Set(ctx, key, res)
	return res, nil
}

// Speciality lists doctors of one speciality from the named source.
func (s *Service) Speciality(ctx context.Context, source, speciality string) (domain.AggregationResult, error) {
	req := domain.Request{Mode: domain.ModeSpeciality, Source: strings.TrimSpace(source), Query: normalize(speciality)}
	if err := s.selectable(req); err != nil {
		return domain.AggregationResult{}, err
	}
	res, hit, err := cached(ctx, s.cache, KeyFor(req), func(ctx context.Context) (domain.AggregationResult, error) {
		return s.agg.Speciality(ctx, req.Source, req.Query)
	})
	if hit {
		log.Debug().Str("source", req.Source).Msg("speciality cache hit")
	}
	return res, err
}

// Report builds, or serves from cache, the reputation report of one profile.
// Freshly built reports are also appended to the archive when one is configured.
func (s *Service) Report(ctx context.Context, source, identifier string) (domain.ReputationReport, error) {
	req := domain.Request{Mode: domain.ModeReport, Source: strings.TrimSpace(source), Query: strings.TrimSpace(identifier)}
	if err := s.selectable(req); err != nil {
		return domain.ReputationReport{}, err
	}
	rep, hit, err := cached(ctx, s.cache, KeyFor(req), func(ctx context.Context) (domain.ReputationReport, error) {
		reviews, src, err := s.agg.Reviews(ctx, req.Source, req.Query)
		if err != nil {
			return domain.ReputationReport{}, err
		}
		return s.synth.Build(ctx, src.ID, req.Query, reviews, src.Policy)
	})
	if err != nil {
		return domain.ReputationReport{}, err
	}
	if !hit && s.archive != nil {
		if aerr := s.archive.SaveReport(ctx, rep); aerr != nil {
			log.Warn().Err(aerr).Str("source", rep.Source).Str("identifier", rep.Identifier).Msg("archive report failed")
		}
	}
	return rep, nil
}

// History returns archived reports, newest first.
func (s *Service) History(ctx context.Context, source, identifier string, limit int) ([]domain.ArchivedReport, error) {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(identifier) == "" {
		return nil, domain.E(domain.KindInvalidRequest, "source and identifier are required", nil)
	}
	if s.archive == nil {
		return []domain.ArchivedReport{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.archive.History(ctx, strings.TrimSpace(source), strings.TrimSpace(identifier), limit)
}

func (s *Service) Sources() []pipeline.SourceInfo { return s.agg.Registry().List() }

// Execute dispatches a request descriptor and wraps the outcome in the response envelope.
func (s *Service) Execute(ctx context.Context, req domain.Request) domain.Response {
	if err := req.Validate(); err != nil {
		return domain.Failure(err)
	}
	switch req.Mode {
	case domain.ModeSearch:
		res, err := s.Search(ctx, req.Query)
		if err != nil {
			return domain.Failure(err)
		}
		return domain.Response{Success: true, Source: res.SourceID, Results: res.Records}
	case domain.ModeSpeciality:
		res, err := s.Speciality(ctx, req.Source, req.Query)
		if err != nil {
			return domain.Failure(err)
		}
		return domain.Response{Success: true, Source: res.SourceID, Results: res.Records}
	default:
		rep, err := s.Report(ctx, req.Source, req.Query)
		if err != nil {
			return domain.Failure(err)
		}
		return domain.Response{Success: true, Source: rep.Source, Report: &rep}
	}
}

// Invalidate evicts the cached result of req so the next call recomputes it.
func (s *Service) Invalidate(ctx context.Context, req domain.Request) {
	req.Source = strings.TrimSpace(req.Source)
	if req.Mode == domain.ModeReport {
		req.Query = strings.TrimSpace(req.Query)
	} else {
		req.Query = normalize(req.Query)
	}
	s.cache.Del(ctx, KeyFor(req))
}

// selectable validates a selection-mode request and resolves its source before any cache lookup,
// so switching a source off takes effect immediately.
func (s *Service) selectable(req domain.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := s.agg.Registry().Lookup(req.Source)
	return err
}

// KeyFor is the cache key of a normalized request.
func KeyFor(req domain.Request) string {
	switch req.Mode {
	case domain.ModeReport:
		return Key(req.Mode, map[string]string{"source": req.Source, "identifier": req.Query})
	case domain.ModeSpeciality:
		return Key(req.Mode, map[string]string{"source": req.Source, "speciality": req.Query})
	}
	return Key(req.Mode, map[string]string{"query": req.Query})
}

// normalize folds free-text input so "Smith " and "smith" share a cache entry.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
