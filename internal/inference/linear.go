// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package inference

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/medonboard/pkg/types"
)

// LinearModel is a bag-of-words linear classifier. Each label scores a text
// as its bias plus the weight of every token occurrence; the highest score
// wins and ties go to the label listed first.
type LinearModel struct {
	labels []linearLabel
}

type linearLabel struct {
	Label   types.Category     `yaml:"label"`
	Bias    float64            `yaml:"bias"`
	Weights map[string]float64 `yaml:"weights"`
}

type linearModelFile struct {
	Labels []linearLabel `yaml:"labels"`
}

// LoadLinearModel reads a model file of the form
//
//	labels:
//	  - label: Case Study
//	    bias: 0.2
//	    weights: {patient: 1.5, presented: 1.1}
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading classifier model: %w", err)
	}
	return ParseLinearModel(data)
}

// ParseLinearModel decodes and validates a model document.
func ParseLinearModel(data []byte) (*LinearModel, error) {
	var file linearModelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing classifier model: %w", err)
	}
	if len(file.Labels) == 0 {
		return nil, fmt.Errorf("classifier model has no labels")
	}

	seen := make(map[types.Category]bool)
	for i, l := range file.Labels {
		if !l.Label.IsClassifierLabel() {
			return nil, fmt.Errorf("classifier model label %d: unknown category %q", i, l.Label)
		}
		if seen[l.Label] {
			return nil, fmt.Errorf("classifier model label %d: duplicate category %q", i, l.Label)
		}
		seen[l.Label] = true

		weights := make(map[string]float64, len(l.Weights))
		for tok, w := range l.Weights {
			weights[strings.ToLower(tok)] += w
		}
		file.Labels[i].Weights = weights
	}
	return &LinearModel{labels: file.Labels}, nil
}

// Labels returns the categories the model can emit, in file order.
func (m *LinearModel) Labels() []types.Category {
	out := make([]types.Category, len(m.labels))
	for i, l := range m.labels {
		out[i] = l.Label
	}
	return out
}

// Classify returns the highest-scoring label for text.
func (m *LinearModel) Classify(ctx context.Context, text string) (types.Category, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tokens := Tokenize(text)
	best := 0
	bestScore := 0.0
	for i, l := range m.labels {
		score := l.Bias
		for _, tok := range tokens {
			score += l.Weights[tok]
		}
		if i == 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	return m.labels[best].Label, nil
}

// Tokenize lowercases text and splits it into runs of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
