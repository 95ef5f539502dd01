// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package browse builds the read-only views: disease and medicine fact
// cards with their related case studies, and the case study listing.
package browse

import (
	"strings"

	"github.com/pdiddy/medonboard/pkg/types"
)

// ExcerptLength is the number of characters shown per related case.
const ExcerptLength = 150

// UniqueValues returns the distinct non-empty values in order of first
// appearance.
func UniqueValues(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// RelatedCases returns the Case Study records whose text contains
// selection, ignoring case, in table order. An empty selection matches
// nothing.
func RelatedCases(table *types.Table, selection string) []types.CaseRecord {
	if table == nil || selection == "" {
		return nil
	}
	needle := strings.ToLower(selection)
	var out []types.CaseRecord
	for _, r := range table.Records {
		if r.Category == types.CategoryCaseStudy && strings.Contains(strings.ToLower(r.Text), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Excerpt returns at most n characters of text without splitting a
// multi-byte character.
func Excerpt(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// Listing renders a related case as its excerpt followed by "...".
func Listing(text string) string {
	return Excerpt(text, ExcerptLength) + "..."
}

// CaseStudies returns the Case Study records with every column kept.
func CaseStudies(table *types.Table) *types.Table {
	if table == nil {
		return types.NewTable()
	}
	return table.Filter(func(r types.CaseRecord) bool {
		return r.Category == types.CategoryCaseStudy
	})
}
