package report

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"doctor_reputation/internal/adapters/observability"
	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/extract"
)

type Config struct {
	Provider        string // metrics label
	MaxInputTokens  int    // estimated prompt budget
	MaxOutputTokens int
	Temperature     float32
	SummaryMax      int   // runes kept from the summary section
	HighlightMax    int   // display length of highlighted comments
	Concurrency     int64 // summarizer calls in flight across requests
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = "unknown"
	}
	if c.MaxInputTokens == 0 {
		c.MaxInputTokens = 12000
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = 800
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.SummaryMax == 0 {
		c.SummaryMax = 1500
	}
	if c.HighlightMax == 0 {
		c.HighlightMax = 500
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// Synthesizer builds reputation reports. The summarizer is shared, so calls to it are bounded.
type Synthesizer struct {
	sum domain.Summarizer
	sem *semaphore.Weighted
	cfg Config
	now func() time.Time
}

func NewSynthesizer(sum domain.Summarizer, cfg Config) *Synthesizer {
	cfg = cfg.withDefaults()
	return &Synthesizer{sum: sum, sem: semaphore.NewWeighted(cfg.Concurrency), cfg: cfg, now: time.Now}
}

// Build runs highlight selection, bucketing and summarization over the full review set.
// Size-limit failures surface as SummarizationTooLarge, other summarizer failures as SummarizationFailed.
func (s *Synthesizer) Build(ctx context.Context, source, identifier string, reviews []domain.ReviewRecord, p domain.ReportPolicy) (domain.ReputationReport, error) {
	if len(reviews) == 0 {
		return domain.ReputationReport{}, domain.E(domain.KindNoResultsFound, "no reviews found", nil)
	}

	positives, negative := Highlights(reviews, p)
	rep := domain.ReputationReport{
		Source:             source,
		Identifier:         identifier,
		PositiveHighlights: make([]domain.ReviewRecord, 0, len(positives)),
		YearlyBuckets:      Buckets(reviews),
		Insights:           []string{},
		TotalReviews:       len(reviews),
	}
	for _, rv := range positives {
		rep.PositiveHighlights = append(rep.PositiveHighlights, s.display(rv))
	}
	if negative != nil {
		n := s.display(*negative)
		rep.NegativeHighlight = &n
	}

	prompt, err := BuildPrompt(reviews, s.cfg.MaxInputTokens)
	if err != nil {
		observability.ObserveSummarizer(s.cfg.Provider, "too_large")
		return domain.ReputationReport{}, err
	}

	text, err := s.complete(ctx, prompt)
	if err != nil {
		return domain.ReputationReport{}, err
	}

	insights, summary := ParseResponse(text, s.cfg.SummaryMax)
	if insights != nil {
		rep.Insights = insights
	}
	rep.Summary = summary
	if len(insights) == 0 || summary == "" {
		log.Warn().Str("source", source).Str("identifier", identifier).
			Int("insights", len(insights)).Bool("summary", summary != "").
			Msg("summarizer response missing a section")
	}
	rep.GeneratedAt = s.now().UTC()
	return rep, nil
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)

	text, err := s.sum.Complete(ctx, prompt, s.cfg.MaxOutputTokens, s.cfg.Temperature)
	switch {
	case err == nil:
		observability.ObserveSummarizer(s.cfg.Provider, "ok")
		return text, nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(err, domain.ErrSummarizationTooLarge):
		observability.ObserveSummarizer(s.cfg.Provider, "too_large")
		return "", err
	default:
		observability.ObserveSummarizer(s.cfg.Provider, "error")
		return "", domain.E(domain.KindSummarizationFailed, "summarizer failed", err)
	}
}

// display truncates the comment for presentation; CommentLength keeps the full length.
func (s *Synthesizer) display(rv domain.ReviewRecord) domain.ReviewRecord {
	rv.CommentText = extract.Truncate(rv.CommentText, s.cfg.HighlightMax)
	return rv
}
