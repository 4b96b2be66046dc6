// Package incidents classifies complaints into incident types and raises
// alerts when a type accumulates occurrences inside a trailing window.
package incidents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Type is an incident category with the keywords that identify it.
type Type struct {
	Key      string   `yaml:"key" json:"type"`
	Label    string   `yaml:"label" json:"label"`
	Keywords []string `yaml:"keywords" json:"keywords,omitempty"`
}

// DefaultTypes returns the built-in incident types in classification order.
func DefaultTypes() []Type {
	return []Type{
		{
			Key:   "login",
			Label: "Problemas de login/conexão",
			Keywords: []string{
				"login", "logar", "entrar", "conectar", "conexao", "conexão", "servidor",
				"auth", "conectar-se", "não consigo entrar", "nao consigo entrar",
			},
		},
		{
			Key:   "lag",
			Label: "Lag/Ping/Quedas",
			Keywords: []string{
				"lag", "ping", "latencia", "latência", "travando", "travou",
				"delay", "queda", "desconectou", "dc",
			},
		},
		{
			Key:   "crash",
			Label: "Erros/Bugs/Crash",
			Keywords: []string{
				"bug", "erro", "error", "crash", "falha", "travamento", "fechou sozinho",
			},
		},
	}
}

// LoadTypes reads the "incidents" list from a YAML file. A missing path or
// an empty list yields the built-in types.
func LoadTypes(path string) ([]Type, error) {
	if path == "" {
		return DefaultTypes(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read incident types %s: %w", path, err)
	}

	var doc struct {
		Incidents []Type `yaml:"incidents"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse incident types %s: %w", path, err)
	}
	if len(doc.Incidents) == 0 {
		return DefaultTypes(), nil
	}

	seen := make(map[string]bool)
	for i, t := range doc.Incidents {
		if t.Key == "" {
			return nil, fmt.Errorf("incident type %d has no key", i)
		}
		if seen[t.Key] {
			return nil, fmt.Errorf("duplicate incident type %q", t.Key)
		}
		seen[t.Key] = true
		if t.Label == "" {
			doc.Incidents[i].Label = t.Key
		}
	}
	return doc.Incidents, nil
}
