// Package report turns a review set into a reputation report.
package report

import (
	"sort"

	"doctor_reputation/internal/domain"
)

const (
	// PositiveMin is the lowest rating counted as positive, both for highlights and buckets.
	PositiveMin  = 4
	maxPositives = 2
)

// Highlights picks up to two positive reviews, diversified by calendar year, and at most
// one negative review taken from what is left.
//
// Positives are ranked by rating descending and the first review of each unused year wins;
// when that yields fewer than two, the remaining slots are filled in rank order.
// The negative must rate at most p.NegativeMax. Among those, ranked ascending, a review from
// a year not used by the positives is preferred, otherwise the lowest-rated one is taken.
func Highlights(reviews []domain.ReviewRecord, p domain.ReportPolicy) ([]domain.ReviewRecord, *domain.ReviewRecord) {
	if p.NegativeMax == 0 {
		p = domain.DefaultReportPolicy
	}

	byDesc := indexes(reviews)
	sort.SliceStable(byDesc, func(i, j int) bool { return reviews[byDesc[i]].Rating > reviews[byDesc[j]].Rating })

	var positives []int
	picked := map[int]bool{}
	usedYears := map[int]bool{}
	for _, i := range byDesc {
		if len(positives) == maxPositives {
			break
		}
		rv := reviews[i]
		if rv.Rating < PositiveMin || !rv.Dated() || usedYears[rv.CreatedAt.Year()] {
			continue
		}
		positives = append(positives, i)
		picked[i] = true
		usedYears[rv.CreatedAt.Year()] = true
	}
	for _, i := range byDesc {
		if len(positives) == maxPositives || reviews[i].Rating < PositiveMin {
			break
		}
		if !picked[i] {
			positives = append(positives, i)
			picked[i] = true
		}
	}
	sort.SliceStable(positives, func(a, b int) bool {
		return reviews[positives[a]].Rating > reviews[positives[b]].Rating
	})

	out := make([]domain.ReviewRecord, 0, len(positives))
	for _, i := range positives {
		out = append(out, reviews[i])
	}

	var candidates []int
	for _, i := range byDesc {
		if !picked[i] && reviews[i].Rating <= p.NegativeMax {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return out, nil
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return reviews[candidates[a]].Rating < reviews[candidates[b]].Rating
	})
	chosen := candidates[0]
	for _, i := range candidates {
		if rv := reviews[i]; rv.Dated() && !usedYears[rv.CreatedAt.Year()] {
			chosen = i
			break
		}
	}
	neg := reviews[chosen]
	return out, &neg
}

func indexes(reviews []domain.ReviewRecord) []int {
	idx := make([]int, len(reviews))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Buckets groups dated reviews by calendar year, oldest first. Undated reviews are left out.
func Buckets(reviews []domain.ReviewRecord) []domain.YearlyBucket {
	byYear := map[int]*domain.YearlyBucket{}
	for _, rv := range reviews {
		if !rv.Dated() {
			continue
		}
		y := rv.CreatedAt.Year()
		b, ok := byYear[y]
		if !ok {
			b = &domain.YearlyBucket{Year: y}
			byYear[y] = b
		}
		b.TotalCount++
		if rv.Rating >= PositiveMin {
			b.PositiveCount++
		} else {
			b.NegativeCount++
		}
	}
	out := make([]domain.YearlyBucket, 0, len(byYear))
	for _, b := range byYear {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}
