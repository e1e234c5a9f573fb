package badcase

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
)

const (
	maxCharRun        = 5
	maxTokenRun       = 3
	minWordsForRatio  = 4
	minTypeTokenRatio = 0.3
)

// stopTags are the particle, interjection, ending and punctuation tags
// that carry no content of their own.
var stopTags = map[string]struct{}{
	"JKS": {}, "JKC": {}, "JKG": {}, "JKO": {}, "JKB": {}, "JKV": {},
	"JX": {}, "JC": {}, "IC": {}, "EP": {}, "EF": {}, "EC": {},
	"ETN": {}, "ETM": {}, "SF": {}, "SP": {}, "SS": {}, "SE": {},
	"SO": {}, "SW": {},
}

// isRepetitive flags degenerate answers: a long single-character run, a
// token stuttered back to back, or almost no distinct words at all.
func (c *Checker) isRepetitive(answer string) bool {
	if hasCharRun(answer, maxCharRun) {
		return true
	}

	fields := strings.Fields(answer)
	if hasTokenRun(fields, maxTokenRun) {
		return true
	}

	return hasLowTypeTokenRatio(fields)
}

func hasCharRun(s string, limit int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			prev, run = 0, 0
			continue
		}
		if r == prev {
			run++
			if run >= limit {
				return true
			}
			continue
		}
		prev, run = r, 1
	}

	return false
}

func hasTokenRun(fields []string, limit int) bool {
	run := 0
	prev := ""
	for _, field := range fields {
		if field == prev {
			run++
			if run >= limit {
				return true
			}
			continue
		}
		prev, run = field, 1
	}

	return false
}

func hasLowTypeTokenRatio(fields []string) bool {
	if len(fields) < minWordsForRatio {
		return false
	}

	distinct := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		distinct[field] = struct{}{}
	}

	return float64(len(distinct))/float64(len(fields)) < minTypeTokenRatio
}

// lacksContent counts tokens outside the stop-tag set. A tagger failure
// falls back to whitespace tokens where every field counts.
func (c *Checker) lacksContent(answer string) bool {
	return c.meaningfulTokenCount(answer) < c.minMeaningfulTokens
}

func (c *Checker) meaningfulTokenCount(answer string) int {
	tokens, err := c.tagger.Tokenize(answer)
	if err != nil {
		c.logger.Warn("tagger failed; counting whitespace tokens instead", zap.Error(err))
		return len(strings.Fields(answer))
	}

	count := 0
	for _, token := range tokens {
		if _, stop := stopTags[token.Tag]; !stop {
			count++
		}
	}

	return count
}
