package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// CountMatches reports how many of the given keywords appear in text as a
// case-insensitive substring. Keywords are matched in their original
// (whitespace-preserving) form since portal headers keep inner spaces.
func CountMatches(text string, keywords []string) int {
	upper := strings.ToUpper(text)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			n++
		}
	}
	return n
}
