package advice

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry maps one or more lower-case phrases to an answer.
type Entry struct {
	Keys   []string `yaml:"keys"`
	Answer string   `yaml:"answer"`
}

// Knowledge answers questions by substring lookup. Overrides hold the more
// specific multi-word phrases and are checked before Keywords. Within each
// list the first match wins.
type Knowledge struct {
	Overrides []Entry  `yaml:"overrides"`
	Keywords  Keywords `yaml:"keywords"`
	Fallback  string   `yaml:"fallback"`
}

// Keywords is an ordered keyword table. In YAML it is a mapping whose key
// order is the match order.
type Keywords []Entry

// UnmarshalYAML keeps the mapping order, which a Go map would lose.
func (k *Keywords) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: keywords must be a mapping", node.Line)
	}
	out := make(Keywords, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		var answer string
		if err := val.Decode(&answer); err != nil {
			return fmt.Errorf("line %d: keyword %q: %w", val.Line, key.Value, err)
		}
		out = append(out, Entry{Keys: []string{key.Value}, Answer: answer})
	}
	*k = out
	return nil
}

// Match returns the answer for question and whether any entry matched.
func (k *Knowledge) Match(question string) (string, bool) {
	q := strings.ToLower(question)
	if strings.TrimSpace(q) == "" {
		return "", false
	}
	for _, list := range [][]Entry{k.Overrides, k.Keywords} {
		for _, e := range list {
			for _, key := range e.Keys {
				if strings.Contains(q, strings.ToLower(key)) {
					return e.Answer, true
				}
			}
		}
	}
	return "", false
}

// Lookup returns the matched answer or the fallback.
func (k *Knowledge) Lookup(question string) string {
	if answer, ok := k.Match(question); ok {
		return answer
	}
	return k.Fallback
}

func (k *Knowledge) validate() error {
	var errs []error
	for _, list := range [][]Entry{k.Overrides, k.Keywords} {
		for _, e := range list {
			if len(e.Keys) == 0 || e.Answer == "" {
				errs = append(errs, fmt.Errorf("entry %v: keys and answer are required", e.Keys))
				continue
			}
			for _, key := range e.Keys {
				if strings.TrimSpace(key) == "" {
					errs = append(errs, errors.New("empty keyword"))
				}
			}
		}
	}
	if k.Fallback == "" {
		errs = append(errs, errors.New("fallback answer is required"))
	}
	return errors.Join(errs...)
}
