package search

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	yearPattern        = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	nonAlphanumPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

	deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeTitle lowers the string, strips diacritics and collapses
// every non-alphanumeric run to a single space.
func NormalizeTitle(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return ""
	}
	if stripped, _, err := transform.String(deaccent, value); err == nil {
		value = stripped
	}
	value = nonAlphanumPattern.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// coreToken reports whether a token participates in the stricter
// core-word sub-score. Short filler tokens are excluded.
func coreToken(token string) bool {
	return utf8.RuneCountInString(token) > 3
}

// Score rates how well a candidate title answers a query, on a 0..100
// scale. Token overlap dominates, exact phrase and year hits add fixed
// boosts, near-miss titles are rescued by edit distance, and seeders
// contribute a capped popularity term. The result is a pure function
// of its inputs.
func Score(query, title string, seeders int) int {
	normQuery := NormalizeTitle(query)
	normTitle := NormalizeTitle(title)
	if normQuery == "" || normTitle == "" {
		return 0
	}

	queryTokens := strings.Fields(normQuery)
	titleSet := make(map[string]struct{})
	for _, token := range strings.Fields(normTitle) {
		titleSet[token] = struct{}{}
	}

	matched, coreMatched, coreTotal := 0, 0, 0
	for _, token := range queryTokens {
		_, hit := titleSet[token]
		if hit {
			matched++
		}
		if coreToken(token) {
			coreTotal++
			if hit {
				coreMatched++
			}
		}
	}
	matchRatio := float64(matched) / float64(len(queryTokens))
	coreMatch := matchRatio
	if coreTotal > 0 {
		coreMatch = float64(coreMatched) / float64(coreTotal)
	}

	phraseMatch := 0.0
	if strings.Contains(normTitle, normQuery) {
		phraseMatch = 1
	}

	yearMatch := 0.0
	for _, year := range yearPattern.FindAllString(query, -1) {
		if strings.Contains(normTitle, year) {
			yearMatch = 1
			break
		}
	}

	fuzz := fuzzySimilarity(normQuery, normTitle)

	base := 0.55*matchRatio + 0.25*coreMatch + 0.10*phraseMatch + 0.05*yearMatch

	// Only near-miss distances contribute, so generally-similar but
	// wrong titles are not rewarded.
	rescue := 0.0
	if fuzz > 0.75 {
		rescue = fuzz * 0.5
	}

	popularity := math.Min(math.Log10(math.Max(1, float64(seeders)))/3, 1) * 20

	score := int(math.Round((base+rescue)*80 + popularity))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func fuzzySimilarity(left, right string) float64 {
	if left == "" || right == "" {
		return 0
	}
	maxLen := utf8.RuneCountInString(left)
	if rl := utf8.RuneCountInString(right); rl > maxLen {
		maxLen = rl
	}
	if maxLen == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(left, right)
	return 1 - float64(distance)/float64(maxLen)
}
