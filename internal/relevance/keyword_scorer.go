package relevance

import (
	"strings"
	"unicode/utf8"

	"ffnexus/internal/core"
)

// Scorer assigns an integer relevance score to normalized message text and
// decides admission against a configurable threshold.
type Scorer struct {
	lex     *compiledLexicon
	chatter *ChatterFilter
	opts    Options
}

// NewScorer compiles the lexicon and returns a scorer. It fails only when a
// question template is not a valid regular expression.
func NewScorer(lex Lexicon, opts Options) (*Scorer, error) {
	compiled, err := lex.compile()
	if err != nil {
		return nil, err
	}
	return &Scorer{
		lex:     compiled,
		chatter: &ChatterFilter{phrases: compiled.chatter},
		opts:    opts,
	}, nil
}

// NewDefaultScorer returns a scorer over the built-in lexicon.
func NewDefaultScorer() *Scorer {
	s, err := NewScorer(DefaultLexicon(), DefaultOptions())
	if err != nil {
		panic(err)
	}
	return s
}

// Options returns the thresholds the scorer was built with.
func (s *Scorer) Options() Options {
	return s.opts
}

// IsNoise reports whether normalized text is chatter.
func (s *Scorer) IsNoise(normalized string) bool {
	return s.chatter.IsNoise(normalized)
}

// Score computes the lexicon score of normalized text. It does not consult
// the chatter filter; callers that need the noise short-circuit use Evaluate.
func (s *Scorer) Score(normalized string, keywords []string) int {
	return s.score(normalized, keywords, nil).Score
}

// Evaluate filters chatter and scores the rest. Noise yields
// {Admitted: false, Score: NoiseScore} without scoring.
func (s *Scorer) Evaluate(normalized string, keywords []string) core.Verdict {
	b := s.Explain(normalized, keywords)
	return core.Verdict{Admitted: b.Admitted, Score: b.Score}
}

// Explain is Evaluate with the per-factor contributions attached.
func (s *Scorer) Explain(normalized string, keywords []string) Breakdown {
	if s.chatter.IsNoise(normalized) {
		return Breakdown{Normalized: normalized, Noise: true, Score: NoiseScore}
	}
	b := s.score(normalized, keywords, map[string]int{})
	b.Admitted = b.Score >= s.opts.MinScore
	return b
}

func (s *Scorer) score(text string, keywords []string, factors map[string]int) Breakdown {
	b := Breakdown{Normalized: text, Factors: factors}
	add := func(name string, v int) {
		b.Score += v
		if factors != nil {
			factors[name] += v
		}
	}

	sentiment := containsAny(text, s.lex.sentiment)
	if sentiment {
		add(FactorSentiment, 2)
	}
	product := containsAny(text, s.lex.product)
	if product {
		add(FactorProduct, 1)
	}

	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			add(FactorKeywords, 1)
			b.Keywords = append(b.Keywords, kw)
		}
	}

	for _, rx := range s.lex.questions {
		if rx.MatchString(text) {
			add(FactorQuestion, -1)
			break
		}
	}

	if !sentiment && !product && len(b.Keywords) == 0 && containsAny(text, s.lex.weak) {
		add(FactorWeakOnly, -1)
	}

	if utf8.RuneCountInString(text) < s.opts.MinLength || len(strings.Fields(text)) < s.opts.MinWords {
		add(FactorTooShort, -1)
	}

	return b
}
