package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorySets(t *testing.T) {
	tests := []struct {
		cat        Category
		classifier bool
		record     bool
	}{
		{CategoryCaseStudy, true, true},
		{CategoryDisease, true, true},
		{CategoryMedicine, true, true},
		{CategorySymptom, false, true},
		{"Other", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.cat), func(t *testing.T) {
			assert.Equal(t, tt.classifier, tt.cat.IsClassifierLabel())
			assert.Equal(t, tt.record, tt.cat.IsRecordCategory())
		})
	}
}

func TestParseEntityKind(t *testing.T) {
	k, ok := ParseEntityKind(" disease ")
	assert.True(t, ok)
	assert.Equal(t, EntityDisease, k)
	assert.Equal(t, CategorySymptom, EntitySymptom.Category())

	_, ok = ParseEntityKind("ORGAN")
	assert.False(t, ok)
}

func TestTableColumnsAndFilter(t *testing.T) {
	table := NewTable()
	table.AddColumn(ColText)
	table.AddColumn("ward")
	assert.Equal(t, append(append([]string(nil), CaseColumns...), "ward"), table.Columns)

	table.Records = []CaseRecord{
		{Text: "a", Category: CategoryCaseStudy},
		{Text: "b", Category: CategoryDisease},
		{Text: "c", Category: CategoryCaseStudy},
	}
	cases := table.Filter(func(r CaseRecord) bool { return r.Category == CategoryCaseStudy })
	assert.Equal(t, 2, cases.Len())
	assert.Equal(t, "c", cases.Records[1].Text)
	assert.Equal(t, table.Columns, cases.Columns)

	var empty *Table
	assert.Equal(t, 0, empty.Len())
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := fmt.Errorf("saving note: %w", &PersistenceError{Op: "append", Err: cause})
	assert.True(t, IsPersistence(wrapped))
	assert.True(t, errors.Is(wrapped, cause))
	assert.False(t, IsValidation(wrapped))

	inf := fmt.Errorf("analyzing: %w", &InferenceError{Stage: "classify", Err: cause})
	assert.True(t, IsInference(inf))

	ve := NewValidationError("note", "must not be empty")
	assert.True(t, IsValidation(ve))
	assert.Equal(t, "validation error for field 'note': must not be empty", ve.Error())
	assert.Equal(t, "validation error: bad", (&ValidationError{Message: "bad"}).Error())

	assert.True(t, errors.Is(fmt.Errorf("opening x: %w", ErrStoreUnavailable), ErrStoreUnavailable))
}
