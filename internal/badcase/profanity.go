package badcase

import (
	"strings"
	"unicode"

	_ "embed"
)

//go:embed badwords.txt
var badwordsFile string

// badwords holds the lexicon in normalized form so obfuscated spellings
// match too.
var badwords = loadBadwords()

func loadBadwords() []string {
	var words []string
	for _, line := range strings.Split(badwordsFile, "\n") {
		word := normalizeProfanity(line)
		if word != "" {
			words = append(words, word)
		}
	}

	return words
}

func (c *Checker) containsProfanity(answer string) bool {
	normalized := normalizeProfanity(answer)
	for _, word := range badwords {
		if strings.Contains(normalized, word) {
			return true
		}
	}

	return false
}

// normalizeProfanity lowercases and drops every non-letter rune, so
// "시1발" or "f u c k" collapse onto their lexicon entries.
func normalizeProfanity(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}
