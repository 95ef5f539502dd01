// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/medonboard/pkg/types"
)

// LexiconExtractor finds entity mentions by matching a fixed list of
// patterns. Matching is case-insensitive and respects word boundaries.
// At each position the longest pattern wins and matches never overlap.
type LexiconExtractor struct {
	// byFirst indexes patterns by their first lowercased rune, longest first.
	byFirst map[rune][]pattern
	known   map[string]bool
}

type pattern struct {
	runes []rune
	kind  types.EntityKind
}

// LoadLexicon reads a pattern file of the form
//
//	patterns:
//	  DISEASE: [flu, influenza, type 2 diabetes]
//	  SYMPTOM: [fever, cough]
//	  MEDICINE: [paracetamol]
func LoadLexicon(path string) (*LexiconExtractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entity patterns: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes a pattern document.
func ParseLexicon(data []byte) (*LexiconExtractor, error) {
	var file struct {
		Patterns map[string][]string `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing entity patterns: %w", err)
	}

	// Apply kinds in a fixed order so overlapping patterns resolve the
	// same way on every load.
	byKind := make(map[types.EntityKind][]string)
	for label, texts := range file.Patterns {
		kind, ok := types.ParseEntityKind(label)
		if !ok {
			return nil, fmt.Errorf("entity patterns: unknown kind %q", label)
		}
		byKind[kind] = append(byKind[kind], texts...)
	}

	x := NewLexicon()
	for _, kind := range types.EntityKinds {
		x.AddNames(kind, byKind[kind])
	}
	return x, nil
}

// NewLexicon returns an extractor with no patterns.
func NewLexicon() *LexiconExtractor {
	return &LexiconExtractor{
		byFirst: make(map[rune][]pattern),
		known:   make(map[string]bool),
	}
}

// AddNames adds patterns of kind. Blank names and names already present
// under any kind are skipped.
func (x *LexiconExtractor) AddNames(kind types.EntityKind, names []string) {
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || x.known[key] {
			continue
		}
		x.known[key] = true

		runes := []rune(key)
		first := runes[0]
		list := append(x.byFirst[first], pattern{runes: runes, kind: kind})
		sort.SliceStable(list, func(i, j int) bool { return len(list[i].runes) > len(list[j].runes) })
		x.byFirst[first] = list
	}
}

// Len returns the number of patterns.
func (x *LexiconExtractor) Len() int {
	return len(x.known)
}

// Extract returns the matched spans in text order. Span text keeps the
// casing of the input.
func (x *LexiconExtractor) Extract(ctx context.Context, text string) ([]types.EntitySpan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orig := []rune(text)
	lower := make([]rune, len(orig))
	for i, r := range orig {
		lower[i] = unicode.ToLower(r)
	}

	var spans []types.EntitySpan
	for i := 0; i < len(lower); {
		if i > 0 && isWordRune(lower[i-1]) {
			i++
			continue
		}
		end := -1
		var kind types.EntityKind
		for _, p := range x.byFirst[lower[i]] {
			j := i + len(p.runes)
			if j > len(lower) || (j < len(lower) && isWordRune(lower[j])) {
				continue
			}
			if string(lower[i:j]) == string(p.runes) {
				end, kind = j, p.kind
				break
			}
		}
		if end < 0 {
			i++
			continue
		}
		spans = append(spans, types.EntitySpan{Text: string(orig[i:end]), Kind: kind})
		i = end
	}
	return spans, nil
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
