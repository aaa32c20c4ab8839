package report

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"doctor_reputation/internal/domain"
	"doctor_reputation/internal/extract"
)

const (
	insightsHeading = "KEY INSIGHTS"
	summaryHeading  = "PROFESSIONAL SUMMARY"
	maxInsights     = 3
)

const promptTail = `

Please format your response EXACTLY like this:

KEY INSIGHTS:
1. [First insight]
2. [Second insight]
3. [Third insight]

PROFESSIONAL SUMMARY:
[Summary text here]`

// EstimateTokens approximates the token count of s at four characters per token.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// BuildPrompt lists every review as "[Month YYYY] comment" followed by the response layout.
// It fails with SummarizationTooLarge when the estimate exceeds budget; budget <= 0 disables the check.
func BuildPrompt(reviews []domain.ReviewRecord, budget int) (string, error) {
	var b strings.Builder
	b.WriteString("Based on these doctor reviews:\n\n")
	for _, rv := range reviews {
		date := "Undated"
		if rv.Dated() {
			date = rv.CreatedAt.Format("January 2006")
		}
		fmt.Fprintf(&b, "[%s] %s\n", date, strings.Join(strings.Fields(rv.CommentText), " "))
	}
	b.WriteString(promptTail)

	prompt := b.String()
	if est := EstimateTokens(prompt); budget > 0 && est > budget {
		return "", domain.E(domain.KindSummarizationTooLarge,
			fmt.Sprintf("prompt of %d reviews needs ~%d tokens, budget is %d; reduce batch size", len(reviews), est, budget), nil)
	}
	return prompt, nil
}

var (
	listMarker = regexp.MustCompile(`^(\d+[.)]|[-*•])\s*`)
	decoration = strings.NewReplacer("*", "", "#", "")
)

// ParseResponse reads the insights list and the summary out of a completion.
// Headings are matched case-insensitively and may carry markdown decoration.
// A missing section leaves its value empty. summaryMax <= 0 keeps the full summary.
func ParseResponse(text string, summaryMax int) ([]string, string) {
	var (
		insights []string
		summary  []string
		section  string
	)
	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if h, rest, ok := heading(line); ok {
			section = h
			if rest == "" {
				continue
			}
			line = rest
		}
		switch section {
		case insightsHeading:
			if len(insights) < maxInsights {
				if s := strings.TrimSpace(listMarker.ReplaceAllString(line, "")); s != "" {
					insights = append(insights, s)
				}
			}
		case summaryHeading:
			summary = append(summary, line)
		}
	}
	return insights, extract.Truncate(strings.Join(summary, " "), summaryMax)
}

// heading recognizes "KEY INSIGHTS:" and "PROFESSIONAL SUMMARY:" lines and returns any text after the colon.
func heading(line string) (string, string, bool) {
	clean := strings.TrimSpace(decoration.Replace(line))
	for _, h := range []string{insightsHeading, summaryHeading} {
		if len(clean) < len(h) || !strings.EqualFold(clean[:len(h)], h) {
			continue
		}
		rest := strings.TrimSpace(clean[len(h):])
		if rest != "" && !strings.HasPrefix(rest, ":") {
			continue
		}
		return h, strings.TrimSpace(strings.TrimPrefix(rest, ":")), true
	}
	return "", "", false
}
