package relevance

// NoiseScore is the score reported for messages rejected by the chatter
// filter. Noise is never scored against the lexicon.
const NoiseScore = -99

// Options holds the externally configurable scoring thresholds.
type Options struct {
	MinScore  int `json:"min_score"`  // Admission threshold (inclusive)
	MinWords  int `json:"min_words"`  // Messages with fewer words are penalized
	MinLength int `json:"min_length"` // Messages with fewer characters are penalized
}

// DefaultOptions returns the standard scoring thresholds.
func DefaultOptions() Options {
	return Options{
		MinScore:  2,
		MinWords:  3,
		MinLength: 12,
	}
}

// Breakdown explains how a message was scored.
type Breakdown struct {
	Normalized string         `json:"normalized"`
	Noise      bool           `json:"noise"`
	Score      int            `json:"score"`
	Admitted   bool           `json:"admitted"`
	Factors    map[string]int `json:"factors,omitempty"` // Individual score contributions
	Keywords   []string       `json:"keywords,omitempty"`
}

// Factor names reported in Breakdown.Factors.
const (
	FactorSentiment = "sentiment"
	FactorProduct   = "product"
	FactorKeywords  = "keywords"
	FactorQuestion  = "question"
	FactorWeakOnly  = "weak_only"
	FactorTooShort  = "too_short"
)
