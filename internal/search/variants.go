package search

import (
	"regexp"
	"strconv"
	"strings"

	"audioswarm/searchservice/internal/domain"
)

const maxQueryVariants = 6

var (
	parentheticalPattern = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]`)
	soundtrackPattern    = regexp.MustCompile(`(?i)\b(soundtrack|ost)\b`)
)

// CanonicalQuery is the query string a request boils down to: the raw
// query when present, otherwise the structured fields joined.
func CanonicalQuery(req domain.SearchRequest) string {
	if query := strings.TrimSpace(req.Query); query != "" {
		return query
	}
	parts := make([]string, 0, 3)
	if title := strings.TrimSpace(req.Title); title != "" {
		parts = append(parts, title)
	}
	if artist := strings.TrimSpace(req.Artist); artist != "" {
		parts = append(parts, artist)
	}
	if req.Year > 0 {
		parts = append(parts, strconv.Itoa(req.Year))
	}
	return strings.Join(parts, " ")
}

// QueryVariants expands a request into a bounded set of rephrasings to
// raise recall against sources with strict substring matching.
func QueryVariants(req domain.SearchRequest) []string {
	raw := CanonicalQuery(req)
	title := strings.TrimSpace(req.Title)
	artist := strings.TrimSpace(req.Artist)

	candidates := []string{raw}
	if title != "" && artist != "" {
		candidates = append(candidates, title+" "+artist, artist+" "+title)
	}
	if title != "" {
		candidates = append(candidates, title)
		if artist != "" && !soundtrackPattern.MatchString(title) {
			candidates = append(candidates, title+" soundtrack "+artist)
		}
	}
	if stripped := stripParentheticals(raw); stripped != "" && stripped != raw {
		candidates = append(candidates, stripped)
	}

	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		value := strings.Join(strings.Fields(candidate), " ")
		if value == "" {
			continue
		}
		key := strings.ToLower(value)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		variants = append(variants, value)
		if len(variants) == maxQueryVariants {
			break
		}
	}
	return variants
}

func stripParentheticals(raw string) string {
	return strings.TrimSpace(parentheticalPattern.ReplaceAllString(raw, ""))
}
