package fill

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	specialChars = regexp.MustCompile(`[^\w\s.]`)
	planSuffix   = regexp.MustCompile(`\s*(regular plan|reg|institutional plan|ex institutional plan|retail plan|long term plan)\s*$`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes a scheme name: strips special characters, lowers
// case, collapses whitespace and drops plan suffixes, so the same fund is
// recognized whether it comes from the rate sheet or the workbook.
func Normalize(text string) string {
	s := specialChars.ReplaceAllString(text, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = multiSpace.ReplaceAllString(s, " ")
	s = planSuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// similarity scores two strings 0..100 from their Levenshtein distance.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (total - 2*dist) * 100 / total
}

// BestMatch returns the candidate most similar to target, provided its score
// reaches cutoff. Candidates and target are expected to be normalized already.
func BestMatch(target string, candidates []string, cutoff int) (string, bool) {
	best := ""
	bestScore := -1
	for _, c := range candidates {
		if score := similarity(target, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < cutoff {
		return "", false
	}
	return best, true
}
