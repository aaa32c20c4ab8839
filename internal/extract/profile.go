package extract

import (
	"strings"

	"doctor_reputation/internal/domain"
)

// Rules is the per-source minimum-signal threshold.
type Rules struct {
	MinReviews int
}

// Accept applies the validity filter and duplicate suppression to one candidate.
// On acceptance the identity key is added to seen.
func Accept(p domain.ProfileRecord, seen SeenKeys, r Rules) bool {
	key := strings.TrimSpace(p.Key())
	if key == "" || seen.Has(key) {
		return false
	}
	if strings.TrimSpace(p.Name) == "" || len(p.Specialties) == 0 {
		return false
	}
	if p.ReviewCount < 0 || p.ReviewCount < r.MinReviews {
		return false
	}
	seen.Add(key)
	return true
}

// Profiles filters candidates in order, keeping only accepted ones.
func Profiles(cands []domain.ProfileRecord, seen SeenKeys, r Rules) []domain.ProfileRecord {
	out := make([]domain.ProfileRecord, 0, len(cands))
	for _, c := range cands {
		c.Specialties = cleanSpecialties(c.Specialties)
		c.Name = strings.TrimSpace(c.Name)
		if Accept(c, seen, r) {
			out = append(out, c)
		}
	}
	return out
}

// SplitSpecialties splits a comma separated specialty list.
func SplitSpecialties(s string) []string {
	return cleanSpecialties(strings.Split(s, ","))
}

func cleanSpecialties(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Unknown fills location parts an upstream does not provide.
const Unknown = "Unknown"

func OrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return Unknown
	}
	return s
}
