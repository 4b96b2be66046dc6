package relevance

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the fixed term lists used by the chatter filter and the
// scorer. Terms are matched against normalized text, so they are normalized
// when the lexicon is compiled.
type Lexicon struct {
	Sentiment         []string `yaml:"sentiment"`
	Product           []string `yaml:"product"`
	Weak              []string `yaml:"weak"`
	Chatter           []string `yaml:"chatter"`
	QuestionTemplates []string `yaml:"question_templates"` // regular expressions
	DefaultKeywords   []string `yaml:"default_keywords"`
}

// DefaultLexicon returns the built-in community lexicon (pt-BR, Free Fire).
func DefaultLexicon() Lexicon {
	return Lexicon{
		Sentiment: []string{
			"horrivel", "horrível", "ruim", "pessimo", "péssimo", "bugado", "bug", "travando", "lag", "lento",
			"caro", "barato", "carissimo", "otimo", "ótimo", "bom", "muito bom", "terrivel", "terrível",
			"nerf", "buff", "corrigir", "arrumar", "conserta", "nerfaram", "buffaram", "travou", "demorado",
			"nao funciona", "não funciona", "caiu", "erro", "crash", "falha",
		},
		Product: []string{
			"passe booyah", "booyah", "passe", "skin", "gloo wall", "parede de gel", "royale",
			"top criminal", "dourado", "emote", "token", "bundle", "booyah pass", "booyapass",
		},
		Weak: []string{
			"evento", "novidade", "quando", "qnd", "server", "atualizacao", "atualização",
		},
		Chatter: []string{
			"bom dia", "boa tarde", "boa noite", "eae", "fala galera", "salve",
			"guilda", "clã", "clan", "add", "me adiciona", "bora", "vamo jogar",
			"partiu", "manda nick", "nick", "ajuda", "recrutando", "recruta",
			"sala personalizada", "sala", "alguém", "tô montando", "to montando",
			"vem jogar", "entra", "grupo", "meta", "foco", "equipe", "time",
			"oi", "olá", "ola", "tudo bem", "kk", "rs", "haha", "boa sorte",
			"vamos subir", "me aceita", "aceita", "vem pro x1", "tropa", "squad",
		},
		QuestionTemplates: []string{
			`(quando|que dia|qnd|vai ter|tem)\b.*(evento|passe|booyah|skin|atualizacao)`,
			`(alguem sabe|quando vem|quando vai vir|que dia sai)`,
			`\?$`,
		},
		DefaultKeywords: []string{
			"passe booyah", "booyah", "skin", "gloo wall", "parede de gel",
			"nerf", "buff", "token", "preco", "preço", "caro", "barato", "bug", "lag",
			"servidor", "evento", "royale", "bundle", "horrivel", "horrível", "ruim", "ótimo", "otimo", "feedback",
		},
	}
}

// LoadLexicon reads a YAML lexicon file. Lists present in the file replace
// the corresponding built-in list; omitted lists keep their defaults.
func LoadLexicon(path string) (Lexicon, error) {
	lex := DefaultLexicon()
	if path == "" {
		return lex, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("failed to read lexicon file %s: %w", path, err)
	}

	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Lexicon{}, fmt.Errorf("failed to parse lexicon file %s: %w", path, err)
	}

	if override.Sentiment != nil {
		lex.Sentiment = override.Sentiment
	}
	if override.Product != nil {
		lex.Product = override.Product
	}
	if override.Weak != nil {
		lex.Weak = override.Weak
	}
	if override.Chatter != nil {
		lex.Chatter = override.Chatter
	}
	if override.QuestionTemplates != nil {
		lex.QuestionTemplates = override.QuestionTemplates
	}
	if override.DefaultKeywords != nil {
		lex.DefaultKeywords = override.DefaultKeywords
	}
	return lex, nil
}

// compiledLexicon is the matching form of a Lexicon.
type compiledLexicon struct {
	sentiment []string
	product   []string
	weak      []string
	chatter   []string // word forms, padded
	questions []*regexp.Regexp
}

func (l Lexicon) compile() (*compiledLexicon, error) {
	c := &compiledLexicon{
		sentiment: normalizeTerms(l.Sentiment),
		product:   normalizeTerms(l.Product),
		weak:      normalizeTerms(l.Weak),
	}
	c.chatter = chatterForms(l.Chatter)
	for _, tpl := range l.QuestionTemplates {
		rx, err := regexp.Compile(tpl)
		if err != nil {
			return nil, fmt.Errorf("invalid question template %q: %w", tpl, err)
		}
		c.questions = append(c.questions, rx)
	}
	return c, nil
}

// chatterForms converts chatter phrases to padded word forms.
func chatterForms(phrases []string) []string {
	var out []string
	for _, phrase := range normalizeTerms(phrases) {
		if form := wordForm(phrase); form != " " {
			out = append(out, form)
		}
	}
	return out
}

// normalizeTerms normalizes and deduplicates a term list, dropping empties.
func normalizeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		n := Normalize(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
