package domain

import (
	"context"
	"time"
)

// Document is a raw upstream response.
type Document struct {
	URL    string
	Status int
	Body   []byte
}

// Fetcher retrieves raw documents. Transport failures are returned as errors,
// HTTP statuses are left to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (Document, error)
}

// Summarizer is the black-box text completion capability.
type Summarizer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

// Cache is the shared key-value store behind the cache gateway.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type ProfileSearcher interface {
	SearchProfiles(ctx context.Context, query string) ([]ProfileRecord, error)
}

type SpecialitySearcher interface {
	SearchSpeciality(ctx context.Context, speciality string) ([]ProfileRecord, error)
}

// ReviewCollector gathers the full deduplicated review set of one profile.
type ReviewCollector interface {
	CollectReviews(ctx context.Context, identifier string) ([]ReviewRecord, error)
}

// MissEvent records an upstream call that was absorbed as "no data".
type MissEvent struct {
	Source string
	Mode   string
	Key    string
	Kind   ErrorKind
	Reason string
}

type MissLog interface {
	LogMiss(ctx context.Context, ev MissEvent) error
}

type ReportArchive interface {
	SaveReport(ctx context.Context, r ReputationReport) error
	History(ctx context.Context, source, identifier string, limit int) ([]ArchivedReport, error)
}
