package extract

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// TruncationMarker is appended to comments cut for display.
const TruncationMarker = "…"

// Truncate cuts s to at most max runes (plus the marker). max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:max]), " \t\n") + TruncationMarker
}

// ClampRating bounds a rating to the canonical 0..5 range.
func ClampRating(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 5:
		return 5
	}
	return n
}

// RoundRating converts a continuous 0..5 average to the canonical integer scale (half up).
func RoundRating(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	return ClampRating(int(math.Floor(f + 0.5)))
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2 January 2006",
	"02 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
	"January 2006",
	"Jan 2006",
}

// ParseDate tries the date layouts seen across sources. The zero time means unparseable.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
