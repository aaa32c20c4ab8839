package domain

import "time"

// ReviewRecord is one patient review on the canonical 0..5 integer scale.
// CommentLength is the rune length of the full comment and survives display truncation.
type ReviewRecord struct {
	Author        *string   `json:"author,omitempty"`
	CommentText   string    `json:"commentText"`
	CommentLength int       `json:"commentLength"`
	Rating        int       `json:"rating"`
	CreatedAt     time.Time `json:"createdAt"`
	RawDateText   *string   `json:"rawDateText,omitempty"`
}

// Dated reports whether the review carries a usable creation time.
func (r ReviewRecord) Dated() bool { return !r.CreatedAt.IsZero() }

// YearlyBucket aggregates reviews of one calendar year. Derived, never persisted on its own.
type YearlyBucket struct {
	Year          int `json:"year"`
	PositiveCount int `json:"positiveCount"`
	NegativeCount int `json:"negativeCount"`
	TotalCount    int `json:"totalCount"`
}

type ReputationReport struct {
	Source             string         `json:"source"`
	Identifier         string         `json:"identifier"`
	PositiveHighlights []ReviewRecord `json:"positiveHighlights"`
	NegativeHighlight  *ReviewRecord  `json:"negativeHighlight"`
	YearlyBuckets      []YearlyBucket `json:"yearlyBuckets"`
	Insights           []string       `json:"insights"`
	Summary            string         `json:"summary"`
	TotalReviews       int            `json:"totalReviews"`
	GeneratedAt        time.Time      `json:"generatedAt"`
}

// ReportPolicy carries the per-source knobs the synthesizer needs.
type ReportPolicy struct {
	// NegativeMax is the highest rating still eligible as the negative highlight.
	NegativeMax int
}

// DefaultReportPolicy treats anything below 3 as negative.
var DefaultReportPolicy = ReportPolicy{NegativeMax: 2}

// ArchivedReport is a report snapshot read back from the archive.
type ArchivedReport struct {
	ID         int64            `json:"id"`
	Source     string           `json:"source"`
	Identifier string           `json:"identifier"`
	Report     ReputationReport `json:"report"`
	CreatedAt  time.Time        `json:"createdAt"`
}
