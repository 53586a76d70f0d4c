package ingest

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// Tokenize splits text into distinct normalized words using UAX #29 word
// boundaries. Whitespace and punctuation segments are dropped.
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}
	seg := words.FromString(Normalize(text))
	seen := make(map[string]struct{})
	out := []string{}
	for seg.Next() {
		w := seg.Value()
		if !isWord(w) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
