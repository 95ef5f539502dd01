// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// Category labels a case record. The classifier emits one of the first
// three; Symptom only appears on derived records.
type Category string

const (
	CategoryCaseStudy Category = "Case Study"
	CategoryDisease   Category = "Disease"
	CategoryMedicine  Category = "Medicine"
	CategorySymptom   Category = "Symptom"
)

// ClassifierCategories is the fixed label set of the classifier, in the
// order the review form offers them.
var ClassifierCategories = []Category{CategoryCaseStudy, CategoryDisease, CategoryMedicine}

// IsClassifierLabel reports whether c is a label the classifier can emit.
func (c Category) IsClassifierLabel() bool {
	for _, known := range ClassifierCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IsRecordCategory reports whether c may appear on a persisted record.
func (c Category) IsRecordCategory() bool {
	return c.IsClassifierLabel() || c == CategorySymptom
}

// EntityKind is the label attached to an extracted span.
type EntityKind string

const (
	EntityDisease  EntityKind = "DISEASE"
	EntitySymptom  EntityKind = "SYMPTOM"
	EntityMedicine EntityKind = "MEDICINE"
)

// EntityKinds lists the kinds in the order derived records are emitted.
var EntityKinds = []EntityKind{EntityDisease, EntitySymptom, EntityMedicine}

// ParseEntityKind maps a label such as "disease" or "DISEASE" to its kind.
func ParseEntityKind(s string) (EntityKind, bool) {
	k := EntityKind(strings.ToUpper(strings.TrimSpace(s)))
	switch k {
	case EntityDisease, EntitySymptom, EntityMedicine:
		return k, true
	}
	return "", false
}

// Category returns the category carried by records derived from spans of kind k.
func (k EntityKind) Category() Category {
	switch k {
	case EntityDisease:
		return CategoryDisease
	case EntitySymptom:
		return CategorySymptom
	case EntityMedicine:
		return CategoryMedicine
	}
	return ""
}

// EntitySpan is one labeled piece of text found in a note.
type EntitySpan struct {
	Text string     `json:"text" yaml:"text"`
	Kind EntityKind `json:"kind" yaml:"kind"`
}

// Column names of the persisted case table, in their canonical order.
const (
	ColText      = "text"
	ColCategory  = "category"
	ColDiseases  = "diseases"
	ColSymptoms  = "symptoms"
	ColMedicines = "medicines"
	ColFeedback  = "feedback"
	ColAuthor    = "author"
	ColTimestamp = "timestamp"
)

// CaseColumns is the canonical column order of the case table.
var CaseColumns = []string{
	ColText, ColCategory, ColDiseases, ColSymptoms, ColMedicines,
	ColFeedback, ColAuthor, ColTimestamp,
}

// CaseRecord is one row of the case table. Primary records carry the full
// note and its reviewed entity strings; derived records carry a single
// entity as text and leave the entity and feedback fields empty.
type CaseRecord struct {
	Text      string    `json:"text" yaml:"text"`
	Category  Category  `json:"category" yaml:"category"`
	Diseases  string    `json:"diseases,omitempty" yaml:"diseases,omitempty"`
	Symptoms  string    `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	Medicines string    `json:"medicines,omitempty" yaml:"medicines,omitempty"`
	Feedback  string    `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Author    string    `json:"author" yaml:"author"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// RawTimestamp keeps a timestamp cell that could not be parsed, so it is
	// written back unchanged. Timestamp is zero when it is set.
	RawTimestamp string `json:"raw_timestamp,omitempty" yaml:"raw_timestamp,omitempty"`

	// Extra holds values of columns this version does not know about, so
	// rewriting the table never drops them.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Table is the ordered content of the case store.
type Table struct {
	// Columns lists the header in write order: the canonical columns
	// followed by any unknown columns in order of first appearance.
	Columns []string `json:"columns" yaml:"columns"`

	// Records are the rows in insertion order.
	Records []CaseRecord `json:"records" yaml:"records"`
}

// NewTable returns an empty table with the canonical columns.
func NewTable() *Table {
	return &Table{Columns: append([]string(nil), CaseColumns...)}
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// AddColumn appends name to the header unless it is already present.
func (t *Table) AddColumn(name string) {
	for _, c := range t.Columns {
		if c == name {
			return
		}
	}
	t.Columns = append(t.Columns, name)
}

// Filter returns a new table with the same columns holding the records
// for which keep returns true, in source order.
func (t *Table) Filter(keep func(CaseRecord) bool) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, r := range t.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}
