package relevance

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScorerAdmitsLoginComplaint(t *testing.T) {
	s := NewDefaultScorer()
	text := Normalize("login não funciona, servidor caiu")

	v := s.Evaluate(text, DefaultLexicon().DefaultKeywords)
	if !v.Admitted {
		t.Fatalf("expected admission, got %+v", v)
	}
	if v.Score < 2 {
		t.Errorf("expected score >= 2, got %d", v.Score)
	}
}

func TestScorerNoiseIsNeverScored(t *testing.T) {
	s := NewDefaultScorer()

	b := s.Explain(Normalize("bom dia"), []string{"bom", "dia"})
	if !b.Noise {
		t.Fatal("expected noise")
	}
	if b.Admitted || b.Score != NoiseScore {
		t.Errorf("noise should not be admitted or scored, got %+v", b)
	}
	if len(b.Factors) != 0 {
		t.Errorf("noise should carry no factors, got %v", b.Factors)
	}
}

func TestScorerFactors(t *testing.T) {
	s := NewDefaultScorer()

	tests := []struct {
		name     string
		text     string
		keywords []string
		want     int
	}{
		{"sentiment and product", "o passe booyah esta muito caro", nil, 3},
		{"keywords compound", "o lag e o bug do servidor", []string{"lag", "bug", "servidor"}, 2 + 3},
		{"generic question", "quando vem o proximo evento de skin", nil, 1 - 1},
		{"question mark", "a skin nova ficou ruim mesmo?", nil, 3 - 1},
		{"weak only", "tem novidade no jogo hoje", nil, -1},
		{"too short", "lag horrivel", nil, 2 - 1},
		{"too few words", "atualizacaoooooo travando", nil, 2 - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(Normalize(tt.text), tt.keywords)
			if got != tt.want {
				t.Errorf("Score(%q) = %d, want %d (%+v)", tt.text, got, tt.want, s.Explain(Normalize(tt.text), tt.keywords))
			}
		})
	}
}

func TestScorerMonotonicInKeywords(t *testing.T) {
	s := NewDefaultScorer()
	text := Normalize("o servidor esta com lag e a gloo wall bugou no royale")

	keywords := []string{"servidor", "lag", "gloo wall", "royale", "inexistente"}
	prev := s.Score(text, nil)
	for i := 1; i <= len(keywords); i++ {
		got := s.Score(text, keywords[:i])
		if got < prev {
			t.Fatalf("score decreased from %d to %d after adding %q", prev, got, keywords[i-1])
		}
		prev = got
	}
}

func TestScorerThresholdConfigurable(t *testing.T) {
	strict, err := NewScorer(DefaultLexicon(), Options{MinScore: 10, MinWords: 3, MinLength: 12})
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	if v := strict.Evaluate(Normalize("login não funciona, servidor caiu"), nil); v.Admitted {
		t.Errorf("expected rejection with threshold 10, got %+v", v)
	}
}

func TestNewScorerRejectsBadTemplate(t *testing.T) {
	lex := DefaultLexicon()
	lex.QuestionTemplates = []string{"(unclosed"}
	if _, err := NewScorer(lex, DefaultOptions()); err == nil {
		t.Fatal("expected error for invalid template")
	}
}

func TestLoadLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	data := []byte("product:\n  - diamante\n  - Passe Élite\nchatter:\n  - salve\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	if len(lex.Product) != 2 || lex.Product[0] != "diamante" {
		t.Errorf("product not overridden: %v", lex.Product)
	}
	if len(lex.Sentiment) != len(DefaultLexicon().Sentiment) {
		t.Error("sentiment should keep defaults when omitted")
	}

	s, err := NewScorer(lex, DefaultOptions())
	if err != nil {
		t.Fatalf("NewScorer: %v", err)
	}
	if got := s.Score(Normalize("quero o passe elite agora mesmo"), nil); got != 1 {
		t.Errorf("expected product match on normalized term, got %d", got)
	}
}

func TestLoadLexiconMissingFile(t *testing.T) {
	if _, err := LoadLexicon(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	lex, err := LoadLexicon("")
	if err != nil || len(lex.Chatter) == 0 {
		t.Fatalf("empty path should return defaults, got %v", err)
	}
}
