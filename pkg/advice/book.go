// Package advice holds what the assistant says: the per-label advice spoken
// when a verdict stabilizes, and the keyword knowledge base used to answer
// typed or spoken questions, with an optional LLM fallback.
package advice

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/chriscow/eco-go/pkg/ai/classify"
	"gopkg.in/yaml.v3"
)

//go:embed books/*.yaml
var builtin embed.FS

// Book is a language pack: announcement phrasing, per-label advice and the
// question knowledge base.
type Book struct {
	Language       string            `yaml:"language"`
	Phrase         string            `yaml:"phrase"`
	Labels         map[string]string `yaml:"labels"`
	LowConfidence  string            `yaml:"low_confidence"`
	RemoteFallback string            `yaml:"remote_fallback"`
	Knowledge      `yaml:",inline"`
}

// Builtin returns the embedded book for lang ("en" or "es").
func Builtin(lang string) (*Book, error) {
	data, err := builtin.ReadFile("books/" + lang + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no builtin advice book for %q (have %s)", lang, strings.Join(BuiltinLanguages(), ", "))
	}
	return Parse(data)
}

// BuiltinLanguages lists the embedded books.
func BuiltinLanguages() []string {
	entries, _ := builtin.ReadDir("books")
	var langs []string
	for _, e := range entries {
		langs = append(langs, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(langs)
	return langs
}

// Load reads a book from a YAML file.
func Load(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read advice book: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse decodes a YAML book.
func Parse(data []byte) (*Book, error) {
	var b Book
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse advice book: %w", err)
	}
	if b.Phrase == "" {
		b.Phrase = "{label}. {advice}"
	}
	if err := b.Knowledge.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Advice returns the advice text for label, or "" when the book has none.
func (b *Book) Advice(label string) string {
	return b.Labels[label]
}

// Announcement renders the spoken phrase for a stable label.
func (b *Book) Announcement(label string) string {
	r := strings.NewReplacer("{label}", label, "{advice}", b.Advice(label))
	return strings.TrimSpace(r.Replace(b.Phrase))
}

// Hint returns the low-confidence guidance when the top prediction of res
// falls below threshold, and "" otherwise.
func (b *Book) Hint(res classify.Result, threshold float64) string {
	top, ok := res.Top()
	if !ok || top.Confidence >= threshold {
		return ""
	}
	return b.LowConfidence
}
