// Package kotag is an in-process heuristic Korean tagger. It splits
// text into eojeol, peels punctuation, particles and verb endings with
// lexicon and suffix rules, and emits Kiwi-style POS tags. It is built
// for stop-tag filtering (deciding which tokens carry meaning), not for
// full morphological analysis.
package kotag

import (
	"strings"
	"unicode"

	"github.com/devprep/feedback-engine/internal/ai"
)

// Tagger implements ai.Tagger. It is stateless and safe for concurrent
// use.
type Tagger struct{}

func New() *Tagger {
	return &Tagger{}
}

var _ ai.Tagger = (*Tagger)(nil)

// interjections cover acknowledgements and discourse fillers (IC).
var interjections = map[string]struct{}{
	"네": {}, "예": {}, "넵": {}, "응": {}, "어": {}, "아": {}, "오": {},
	"음": {}, "흠": {}, "엄": {}, "그": {}, "저": {}, "저기": {}, "글쎄": {},
	"아니": {}, "뭐": {}, "자": {}, "와": {}, "우와": {}, "아하": {}, "어머": {},
}

// particles are stripped as word suffixes, longest match first.
var particles = []struct {
	suffix string
	tag    string
}{
	{"에서부터", "JKB"}, {"으로부터", "JKB"},
	{"에게서", "JKB"}, {"한테서", "JKB"}, {"으로서", "JKB"}, {"으로써", "JKB"},
	{"께서", "JKS"}, {"이랑", "JC"}, {"하고", "JC"}, {"에서", "JKB"},
	{"에게", "JKB"}, {"한테", "JKB"}, {"보다", "JKB"}, {"처럼", "JKB"},
	{"만큼", "JKB"}, {"까지", "JX"}, {"부터", "JX"}, {"조차", "JX"},
	{"마저", "JX"}, {"밖에", "JX"}, {"으로", "JKB"},
	{"이", "JKS"}, {"가", "JKS"}, {"은", "JX"}, {"는", "JX"},
	{"을", "JKO"}, {"를", "JKO"}, {"의", "JKG"}, {"에", "JKB"},
	{"로", "JKB"}, {"와", "JC"}, {"과", "JC"}, {"랑", "JC"},
	{"도", "JX"}, {"만", "JX"}, {"뿐", "JX"}, {"요", "JX"}, {"께", "JKB"},
}

// endings are verb/adjective/copula terminations, longest match first.
// stemTag names the tag given to what remains before the ending.
var endings = []struct {
	suffix  string
	tag     string
	stemTag string
}{
	{"었습니다", "EF", "VV"}, {"았습니다", "EF", "VV"}, {"겠습니다", "EF", "VV"},
	{"였습니다", "EF", "VV"}, {"입니다", "EF", "NNG"}, {"습니다", "EF", "VV"},
	{"ㅂ니다", "EF", "VV"}, {"이에요", "EF", "NNG"}, {"거든요", "EF", "VV"},
	{"였어요", "EF", "VV"}, {"았어요", "EF", "VV"}, {"었어요", "EF", "VV"},
	{"예요", "EF", "NNG"}, {"에요", "EF", "NNG"}, {"해요", "EF", "VV"},
	{"어요", "EF", "VV"}, {"아요", "EF", "VV"}, {"네요", "EF", "VV"},
	{"군요", "EF", "VV"}, {"지요", "EF", "VV"}, {"나요", "EF", "VV"},
	{"까요", "EF", "VV"}, {"래요", "EF", "VV"}, {"었다", "EF", "VV"},
	{"았다", "EF", "VV"}, {"겠다", "EF", "VV"}, {"한다", "EF", "VV"},
	{"된다", "EF", "VV"}, {"이다", "EF", "NNG"}, {"있다", "EF", "VV"},
	{"없다", "EF", "VV"}, {"같다", "EF", "VV"}, {"죠", "EF", "VV"},
	{"면서", "EC", "VV"}, {"지만", "EC", "VV"}, {"는데", "EC", "VV"},
	{"은데", "EC", "VV"}, {"아서", "EC", "VV"}, {"어서", "EC", "VV"},
	{"니까", "EC", "VV"}, {"려고", "EC", "VV"}, {"도록", "EC", "VV"},
	{"든지", "EC", "VV"}, {"거나", "EC", "VV"}, {"고", "EC", "VV"},
	{"며", "EC", "VV"}, {"면", "EC", "VV"}, {"던", "ETM", "VV"},
}

// Tokenize splits text into tagged tokens. It never fails; the error
// return satisfies ai.Tagger for implementations that can.
func (t *Tagger) Tokenize(text string) ([]ai.Token, error) {
	var tokens []ai.Token
	for _, word := range strings.Fields(text) {
		tokens = append(tokens, tagWord(word)...)
	}

	return tokens, nil
}

func tagWord(word string) []ai.Token {
	var leading, trailing []ai.Token

	runes := []rune(word)

	// Peel punctuation off both ends.
	start, end := 0, len(runes)
	for start < end {
		if tag, ok := punctTag(runes[start]); ok {
			leading = append(leading, ai.Token{Text: string(runes[start]), Tag: tag})
			start++
			continue
		}
		break
	}
	for end > start {
		if tag, ok := punctTag(runes[end-1]); ok {
			trailing = append([]ai.Token{{Text: string(runes[end-1]), Tag: tag}}, trailing...)
			end--
			continue
		}
		break
	}

	core := string(runes[start:end])
	if core == "" {
		return append(leading, trailing...)
	}

	tokens := append(leading, tagCore(core)...)

	return append(tokens, mergeEllipsis(trailing)...)
}

func tagCore(core string) []ai.Token {
	if _, ok := interjections[core]; ok {
		return []ai.Token{{Text: core, Tag: "IC"}}
	}

	coreRunes := []rune(core)

	if endsWithHangul(coreRunes) {
		for _, e := range endings {
			stem, ok := strings.CutSuffix(core, e.suffix)
			if ok && stem != "" {
				return []ai.Token{
					{Text: stem, Tag: classifyStem(stem, e.stemTag)},
					{Text: e.suffix, Tag: e.tag},
				}
			}
		}
		for _, p := range particles {
			stem, ok := strings.CutSuffix(core, p.suffix)
			if ok && stem != "" {
				return []ai.Token{
					{Text: stem, Tag: classifyStem(stem, "NNG")},
					{Text: p.suffix, Tag: p.tag},
				}
			}
		}
	}

	return []ai.Token{{Text: core, Tag: classifyStem(core, "NNG")}}
}

// classifyStem overrides the default tag for non-Hangul stems: digit
// runs become numbers, latin runs foreign words.
func classifyStem(stem, hangulTag string) string {
	allDigit := true
	allLatin := true
	for _, r := range stem {
		if !unicode.IsDigit(r) {
			allDigit = false
		}
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			allLatin = false
		}
	}

	switch {
	case allDigit:
		return "SN"
	case allLatin:
		return "SL"
	default:
		return hangulTag
	}
}

func endsWithHangul(runes []rune) bool {
	if len(runes) == 0 {
		return false
	}
	last := runes[len(runes)-1]

	return unicode.Is(unicode.Hangul, last)
}

func punctTag(r rune) (string, bool) {
	switch {
	case r == '.' || r == '!' || r == '?':
		return "SF", true
	case r == ',' || r == ';' || r == ':' || r == '·':
		return "SP", true
	case strings.ContainsRune(`"'()[]{}`+"`", r) ||
		strings.ContainsRune("「」『』〈〉《》“”‘’", r):
		return "SS", true
	case r == '…':
		return "SE", true
	case r == '~' || r == '-' || r == '_':
		return "SO", true
	case unicode.IsSymbol(r) || unicode.IsPunct(r):
		return "SW", true
	default:
		return "", false
	}
}

// mergeEllipsis collapses runs of trailing periods into one SE token so
// "..." reads as an ellipsis rather than three sentence ends.
func mergeEllipsis(tokens []ai.Token) []ai.Token {
	var out []ai.Token
	for i := 0; i < len(tokens); i++ {
		if tokens[i].Text == "." {
			j := i
			for j < len(tokens) && tokens[j].Text == "." {
				j++
			}
			if j-i >= 2 {
				out = append(out, ai.Token{Text: strings.Repeat(".", j-i), Tag: "SE"})
				i = j - 1
				continue
			}
		}
		out = append(out, tokens[i])
	}

	return out
}
