package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle lower-cases s, folds diacritics to their base letters and
// drops every character outside [a-z0-9].
func NormalizeTitle(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn))), s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LeadingYear returns the text before the first '-' of a date-like string
// when it is a plain number.
func LeadingYear(text string) (string, bool) {
	head, _, _ := strings.Cut(text, "-")
	head = strings.TrimSpace(head)
	if !isDigits(head) {
		return "", false
	}
	return head, true
}

// TitlesEqual compares two titles after normalization. Titles written entirely
// outside [a-z0-9] fall back to a case-insensitive comparison.
func TitlesEqual(candidate, target string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	want := NormalizeTitle(target)
	if want == "" {
		return strings.EqualFold(collapseSpace(candidate), collapseSpace(target))
	}
	return NormalizeTitle(candidate) == want
}

// IsMatch decides whether a search result is the requested title.
// An empty candidateTitle or candidateYearText means the page did not show it.
func IsMatch(candidateTitle, candidateYearText, targetTitle, expectedYear string, yearMatching bool) bool {
	if !TitlesEqual(candidateTitle, targetTitle) {
		return false
	}
	if !yearMatching || expectedYear == "" {
		return true
	}
	year, ok := LeadingYear(candidateYearText)
	return ok && year == expectedYear
}

// SearchQuery builds the site search query for a title.
func SearchQuery(title, year string, yearMatching bool) string {
	if yearMatching && year != "" {
		return title + " " + year
	}
	return title
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
