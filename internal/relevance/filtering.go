package relevance

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// trivialPatterns match whole normalized messages that carry no signal:
// greetings, laughter, acknowledgements and test pings.
var trivialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^bom dia[!.]*$`),
	regexp.MustCompile(`^boa tarde[!.]*$`),
	regexp.MustCompile(`^boa noite[!.]*$`),
	regexp.MustCompile(`^k{3,}$`),
	regexp.MustCompile(`^rs+$`),
	regexp.MustCompile(`^(?:h[aeiu])+h?[!.]*$`),
	regexp.MustCompile(`^ok+[!.]*$`),
	regexp.MustCompile(`^blz+[!.]*$`),
	regexp.MustCompile(`^h{2,}$`),
	regexp.MustCompile(`^e+ita+[!.]*$`),
	regexp.MustCompile(`^testando[!.]*$`),
}

// ChatterFilter rejects greetings, social chatter and trivial messages
// before they reach the scorer. It favors recall: anything not clearly
// chatter passes.
type ChatterFilter struct {
	phrases []string
}

// NewChatterFilter builds a filter from the lexicon's chatter phrases.
func NewChatterFilter(lex Lexicon) *ChatterFilter {
	return &ChatterFilter{phrases: chatterForms(lex.Chatter)}
}

// IsNoise reports whether normalized text is chatter. Rules are checked in
// order and the first match wins.
func (f *ChatterFilter) IsNoise(normalized string) bool {
	if normalized == "" {
		return true
	}

	// Padded word forms, so phrases only match whole words.
	words := wordForm(normalized)
	for _, phrase := range f.phrases {
		if strings.Contains(words, phrase) {
			return true
		}
	}

	if utf8.RuneCountInString(normalized) == 1 {
		return true
	}
	if isEmojiOnly(normalized) {
		return true
	}
	for _, rx := range trivialPatterns {
		if rx.MatchString(normalized) {
			return true
		}
	}
	return false
}

// isEmojiOnly reports whether text consists solely of pictographs, emoji
// modifiers, joiners, keycaps and spaces.
func isEmojiOnly(text string) bool {
	seen := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			continue
		case r == '\u200d' || r == '\u20e3' || (r >= '\ufe00' && r <= '\ufe0f'):
		case unicode.Is(unicode.So, r) || unicode.Is(unicode.Sk, r):
		case r >= 0x1f000 && r <= 0x1faff:
		default:
			return false
		}
		seen = true
	}
	return seen
}

// PassesKeywordFilter reports whether normalized text contains any of the
// keywords. An empty keyword list passes everything.
func PassesKeywordFilter(normalized string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if kw != "" && strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
