package keywords

import (
	"sort"
	"strings"

	"ffnexus/internal/relevance"
)

// LearnerOptions controls candidate extraction.
type LearnerOptions struct {
	MinFrequency   int // Occurrences across the batch required to keep a token
	MinTokenLength int // Shorter tokens are discarded
}

// DefaultLearnerOptions keeps tokens of four or more characters seen at
// least three times.
func DefaultLearnerOptions() LearnerOptions {
	return LearnerOptions{MinFrequency: 3, MinTokenLength: 4}
}

// Learner extracts frequent tokens from a batch of admitted messages.
type Learner struct {
	opts LearnerOptions
}

// NewLearner returns a learner; non-positive options fall back to defaults.
func NewLearner(opts LearnerOptions) *Learner {
	def := DefaultLearnerOptions()
	if opts.MinFrequency <= 0 {
		opts.MinFrequency = def.MinFrequency
	}
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = def.MinTokenLength
	}
	return &Learner{opts: opts}
}

// Tokenize normalizes text and splits it on anything outside [a-z0-9].
func Tokenize(text string) []string {
	return strings.FieldsFunc(relevance.Normalize(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

// Extract returns the tokens that qualify as keywords, most frequent first
// and alphabetically within equal counts.
func (l *Learner) Extract(texts []string) []string {
	freq := make(map[string]int)
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			if len(tok) < l.opts.MinTokenLength {
				continue
			}
			freq[tok]++
		}
	}

	var out []string
	for tok, n := range freq {
		if n >= l.opts.MinFrequency {
			out = append(out, tok)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if freq[out[i]] != freq[out[j]] {
			return freq[out[i]] > freq[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
