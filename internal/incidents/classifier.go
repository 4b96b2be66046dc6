package incidents

import (
	"strings"

	"ffnexus/internal/relevance"
)

// Classifier maps normalized text to the first matching incident type.
type Classifier struct {
	types []Type
}

// NewClassifier normalizes each type's keywords. Declaration order is the
// match priority.
func NewClassifier(types []Type) *Classifier {
	c := &Classifier{types: make([]Type, 0, len(types))}
	for _, t := range types {
		kws := make([]string, 0, len(t.Keywords))
		for _, kw := range t.Keywords {
			if n := relevance.Normalize(kw); n != "" {
				kws = append(kws, n)
			}
		}
		c.types = append(c.types, Type{Key: t.Key, Label: t.Label, Keywords: kws})
	}
	return c
}

// Classify returns the first type with a keyword contained in normalized.
func (c *Classifier) Classify(normalized string) (Type, bool) {
	if normalized == "" {
		return Type{}, false
	}
	for _, t := range c.types {
		for _, kw := range t.Keywords {
			if strings.Contains(normalized, kw) {
				return t, true
			}
		}
	}
	return Type{}, false
}

// Types returns the configured types in priority order.
func (c *Classifier) Types() []Type {
	out := make([]Type, len(c.types))
	copy(out, c.types)
	return out
}
