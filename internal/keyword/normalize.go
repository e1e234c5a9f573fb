package keyword

import (
	"strings"
	"unicode"
)

// fillers are discourse interjections that pad spoken answers without
// adding content. They are stripped before chunking so windows hold
// actual substance.
var fillers = []string{"음", "어", "그", "저", "좀", "이제", "막", "뭐", "그냥", "아니"}

// normalize drops standalone filler words (elongations like 어어 or
// 음… included) and collapses whitespace.
func normalize(answer string) string {
	var kept []string
	for _, field := range strings.Fields(answer) {
		if isFiller(field) {
			continue
		}
		kept = append(kept, field)
	}

	return strings.Join(kept, " ")
}

func isFiller(field string) bool {
	word := strings.TrimRightFunc(field, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if word == "" {
		// Bare punctuation is noise as well.
		return true
	}

	for _, filler := range fillers {
		if matchesFiller(word, filler) {
			return true
		}
	}

	return false
}

// matchesFiller accepts the filler itself and elongations made by
// repeating its final rune (어어어, 음음).
func matchesFiller(word, filler string) bool {
	rest, ok := strings.CutPrefix(word, filler)
	if !ok {
		return false
	}

	fillerRunes := []rune(filler)
	last := fillerRunes[len(fillerRunes)-1]
	for _, r := range rest {
		if r != last {
			return false
		}
	}

	return true
}
