package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"doctor_reputation/internal/adapters/observability"
	"doctor_reputation/internal/domain"
)

// Aggregator coordinates source adapters: priority fallback for search,
// explicit routing for speciality and report lookups.
type Aggregator struct {
	reg    *Registry
	misses domain.MissLog
}

func NewAggregator(reg *Registry, misses domain.MissLog) *Aggregator {
	return &Aggregator{reg: reg, misses: misses}
}

func (a *Aggregator) Registry() *Registry { return a.reg }

// Search tries active sources in priority order and returns the first non-empty result.
// Later sources are never called once one succeeds.
func (a *Aggregator) Search(ctx context.Context, query string) (domain.AggregationResult, error) {
	for _, s := range a.reg.Active() {
		if s.Profiles == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return domain.AggregationResult{}, err
		}
		recs, err := s.Profiles.SearchProfiles(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return domain.AggregationResult{}, ctx.Err()
			}
			a.absorb(ctx, s.ID, domain.ModeSearch, query, err)
			continue
		}
		if len(recs) == 0 {
			observability.ObserveSource(s.ID, string(domain.ModeSearch), "empty")
			continue
		}
		observability.ObserveSource(s.ID, string(domain.ModeSearch), "ok")
		log.Info().Str("source", s.ID).Int("results", len(recs)).Msg("search served by source")
		return domain.AggregationResult{SourceID: s.ID, Records: recs}, nil
	}
	return domain.AggregationResult{}, domain.E(domain.KindNoResultsFound, "no doctors found", nil)
}

// Speciality routes to the named source only.
func (a *Aggregator) Speciality(ctx context.Context, sourceID, speciality string) (domain.AggregationResult, error) {
	s, err := a.reg.Lookup(sourceID)
	if err != nil {
		return domain.AggregationResult{}, err
	}
	if s.Speciality == nil {
		return domain.AggregationResult{}, domain.E(domain.KindInvalidSource, sourceID+" does not support speciality lookups", nil)
	}
	recs, err := s.Speciality.SearchSpeciality(ctx, speciality)
	if err != nil {
		if ctx.Err() != nil {
			return domain.AggregationResult{}, ctx.Err()
		}
		a.absorb(ctx, s.ID, domain.ModeSpeciality, speciality, err)
		recs = nil
	}
	if len(recs) == 0 {
		observability.ObserveSource(s.ID, string(domain.ModeSpeciality), "empty")
		return domain.AggregationResult{}, domain.E(domain.KindNoResultsFound, "no doctors found for speciality", nil)
	}
	observability.ObserveSource(s.ID, string(domain.ModeSpeciality), "ok")
	return domain.AggregationResult{SourceID: s.ID, Records: recs}, nil
}

// Reviews collects the full review set of one profile. Upstream failures are returned, not absorbed.
func (a *Aggregator) Reviews(ctx context.Context, sourceID, identifier string) ([]domain.ReviewRecord, *Source, error) {
	s, err := a.reg.Lookup(sourceID)
	if err != nil {
		return nil, nil, err
	}
	if s.Reviews == nil {
		return nil, nil, domain.E(domain.KindInvalidSource, sourceID+" does not support reports", nil)
	}
	revs, err := s.Reviews.CollectReviews(ctx, identifier)
	if err != nil {
		observability.ObserveSource(s.ID, string(domain.ModeReport), "error")
		if ctx.Err() == nil {
			a.logMiss(ctx, s.ID, domain.ModeReport, identifier, err)
		}
		return nil, s, fmt.Errorf("collect reviews from %s: %w", s.ID, err)
	}
	if len(revs) == 0 {
		observability.ObserveSource(s.ID, string(domain.ModeReport), "empty")
		return nil, s, domain.E(domain.KindNoResultsFound, "no reviews found", nil)
	}
	observability.ObserveSource(s.ID, string(domain.ModeReport), "ok")
	return revs, s, nil
}

func (a *Aggregator) absorb(ctx context.Context, sourceID string, mode domain.Mode, key string, err error) {
	observability.ObserveSource(sourceID, string(mode), "error")
	log.Warn().Err(err).
		Str("source", sourceID).
		Str("mode", string(mode)).
		Str("kind", string(domain.KindOf(err))).
		Msg("source failed, treating as no results")
	a.logMiss(ctx, sourceID, mode, key, err)
}

func (a *Aggregator) logMiss(ctx context.Context, sourceID string, mode domain.Mode, key string, err error) {
	if a.misses == nil {
		return
	}
	ev := domain.MissEvent{Source: sourceID, Mode: string(mode), Key: key, Kind: domain.KindOf(err), Reason: err.Error()}
	if lerr := a.misses.LogMiss(ctx, ev); lerr != nil {
		log.Warn().Err(lerr).Str("source", sourceID).Msg("miss log write failed")
	}
}
