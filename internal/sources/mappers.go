package sources

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/extract"
)

/********** alias registries (single source of truth) **********/

var profileAliases = map[string][]string{
	"id":        {"id", "provider_id", "doctor_id"},
	"name":      {"full_name", "name", "title"},
	"specialty": {"specialty_name", "specialty", "specialty.name"},
	"rating":    {"rating.average", "rating", "average"},
	"count":     {"rating.count", "review_count", "reviewCount", "reviews_count"},
	"city":      {"location.city.name", "city", "location.city"},
	"state":     {"location.city.province_name", "state", "province"},
	"country":   {"location.city.country_name", "country"},
	"image":     {"images.100x100", "image_path", "image"},
	"url":       {"url", "uri", "profile_url"},
	"slug":      {"slug"},
}

// Reviews carry their own id; provider_id and doctor_id name the doctor.
var reviewAliases = map[string][]string{
	"id":      {"id", "review_id"},
	"author":  {"author", "author.name", "user.name", "reviewer"},
	"text":    {"comment", "body", "text", "content"},
	"rating":  {"average", "rating", "rating.average", "score"},
	"created": {"created", "created_at", "date", "published_at"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// firstString: first non-empty string (numbers are formatted) for a named alias set.
func firstString(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		switch v := lookupAny(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstFloat: number from several paths (float64 or numeric string like "4,5").
func firstFloat(m map[string]any, aliases map[string][]string, key string) (float64, bool) {
	for _, p := range aliases[key] {
		switch v := lookupAny(m, p).(type) {
		case float64:
			return v, true
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// itemsAt returns the object array under key, or SourceMalformed when the key is missing.
func itemsAt(payload map[string]any, key string) ([]map[string]any, error) {
	raw, ok := payload[key]
	if !ok {
		return nil, domain.E(domain.KindSourceMalformed, fmt.Sprintf("payload has no %q field", key), nil)
	}
	if raw == nil {
		return nil, nil
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, domain.E(domain.KindSourceMalformed, fmt.Sprintf("%q is not a list", key), nil)
	}
	out := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		if obj, ok := it.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

// intAt reads an optional integer field.
func intAt(payload map[string]any, key string) *int {
	if f, ok := payload[key].(float64); ok {
		n := int(f)
		return &n
	}
	return nil
}

/********** profile mapper **********/

// mapProfile normalizes one JSON profile. Relative URLs resolve against site, images against imageBase.
func mapProfile(sourceID string, m map[string]any, site, imageBase *url.URL) domain.ProfileRecord {
	p := domain.ProfileRecord{
		SourceID:    sourceID,
		ExternalID:  firstString(m, profileAliases, "id"),
		Name:        firstString(m, profileAliases, "name"),
		Specialties: extract.SplitSpecialties(firstString(m, profileAliases, "specialty")),
		Location: domain.Location{
			City:    extract.OrUnknown(firstString(m, profileAliases, "city")),
			State:   extract.OrUnknown(firstString(m, profileAliases, "state")),
			Country: firstString(m, profileAliases, "country"),
		},
		Slug: ptrStr(firstString(m, profileAliases, "slug")),
	}
	if f, ok := firstFloat(m, profileAliases, "rating"); ok {
		p.Rating = clampAverage(f)
	}
	if f, ok := firstFloat(m, profileAliases, "count"); ok {
		p.ReviewCount = int(f)
	}
	if u := firstString(m, profileAliases, "url"); u != "" {
		p.ProfileURL = resolve(site, u)
	}
	if img := firstString(m, profileAliases, "image"); img != "" {
		s := resolve(imageBase, img)
		p.ImageURL = &s
	}
	return p
}

/********** review mapper **********/

// mapReview normalizes one JSON review; continuous averages are rounded onto the 0..5 scale.
func mapReview(m map[string]any) (domain.ReviewRecord, bool) {
	rating := 0
	if f, ok := firstFloat(m, reviewAliases, "rating"); ok {
		rating = extract.RoundRating(f)
	}
	return extract.Review(
		firstString(m, reviewAliases, "author"),
		firstString(m, reviewAliases, "text"),
		rating,
		firstString(m, reviewAliases, "created"),
	)
}

func clampAverage(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 5:
		return 5
	}
	return f
}


func resolve(base *url.URL, ref string) string {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// reviewKey identifies a review for duplicate suppression: upstream id when present,
// otherwise comment text plus the raw date.
func reviewKey(id string, rv domain.ReviewRecord) string {
	if id != "" {
		return "id:" + id
	}
	d := ""
	if rv.RawDateText != nil {
		d = *rv.RawDateText
	}
	return "txt:" + rv.CommentText + "|" + d
}

// dedupReviews keeps the first occurrence of every key not yet in seen.
func dedupReviews(in []keyedReview, seen extract.SeenKeys) []domain.ReviewRecord {
	out := make([]domain.ReviewRecord, 0, len(in))
	for _, k := range in {
		if seen.Has(k.key) {
			continue
		}
		seen.Add(k.key)
		out = append(out, k.rv)
	}
	return out
}

type keyedReview struct {
	key string
	rv  domain.ReviewRecord
}

func mapReviews(items []map[string]any) []keyedReview {
	out := make([]keyedReview, 0, len(items))
	for _, m := range items {
		rv, ok := mapReview(m)
		if !ok {
			continue
		}
		out = append(out, keyedReview{key: reviewKey(firstString(m, reviewAliases, "id"), rv), rv: rv})
	}
	return out
}
