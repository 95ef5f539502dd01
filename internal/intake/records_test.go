package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/medonboard/pkg/types"
)

func TestSplitEntities(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"Flu", []string{"Flu"}},
		{"Flu, , Flu", []string{"Flu", "Flu"}},
		{" fever ,cough,,  ", []string{"fever", "cough"}},
		{" , ,", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitEntities(tt.in))
		})
	}
}

func TestJoinSpans(t *testing.T) {
	spans := []types.EntitySpan{
		{Text: "Flu", Kind: types.EntityDisease},
		{Text: "fever", Kind: types.EntitySymptom},
		{Text: "Covid-19", Kind: types.EntityDisease},
	}
	assert.Equal(t, "Flu, Covid-19", JoinSpans(spans, types.EntityDisease))
	assert.Equal(t, "fever", JoinSpans(spans, types.EntitySymptom))
	assert.Equal(t, "", JoinSpans(spans, types.EntityMedicine))
}

func TestBuildRecords(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

	tests := []struct {
		name       string
		review     Review
		wantTexts  []string
		wantCats   []types.Category
		wantDerive int
	}{
		{
			name:      "no entities yields only the primary record",
			review:    Review{Category: types.CategoryCaseStudy},
			wantTexts: []string{"note"},
			wantCats:  []types.Category{types.CategoryCaseStudy},
		},
		{
			name:      "empty pieces dropped and duplicates kept",
			review:    Review{Category: types.CategoryDisease, Diseases: "Flu, , Flu"},
			wantTexts: []string{"note", "Flu", "Flu"},
			wantCats:  []types.Category{types.CategoryDisease, types.CategoryDisease, types.CategoryDisease},
		},
		{
			name: "diseases then symptoms then medicines in source order",
			review: Review{
				Category:  types.CategoryCaseStudy,
				Medicines: "Paracetamol, Ibuprofen",
				Symptoms:  "fever,cough",
				Diseases:  "Flu",
			},
			wantTexts: []string{"note", "Flu", "fever", "cough", "Paracetamol", "Ibuprofen"},
			wantCats: []types.Category{
				types.CategoryCaseStudy, types.CategoryDisease,
				types.CategorySymptom, types.CategorySymptom,
				types.CategoryMedicine, types.CategoryMedicine,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := BuildRecords(Submission{Text: "note", Review: tt.review, Author: "expert", Timestamp: ts})
			require.Len(t, recs, len(tt.wantTexts))

			for i, r := range recs {
				assert.Equal(t, tt.wantTexts[i], r.Text)
				assert.Equal(t, tt.wantCats[i], r.Category)
				assert.Equal(t, "expert", r.Author)
				assert.True(t, ts.Equal(r.Timestamp), "one timestamp per note")
				if i > 0 {
					assert.Empty(t, r.Diseases)
					assert.Empty(t, r.Symptoms)
					assert.Empty(t, r.Medicines)
					assert.Empty(t, r.Feedback)
				}
			}

			primary := recs[0]
			assert.Equal(t, tt.review.Diseases, primary.Diseases)
			assert.Equal(t, tt.review.Symptoms, primary.Symptoms)
			assert.Equal(t, tt.review.Medicines, primary.Medicines)
		})
	}
}

func TestBuildRecordsCountMatchesPieces(t *testing.T) {
	review := Review{
		Category:  types.CategoryMedicine,
		Diseases:  "a, b,,c",
		Symptoms:  " ",
		Medicines: "x,x",
		Feedback:  "tagger missed dosage",
	}
	recs := BuildRecords(Submission{Text: "t", Review: review})

	want := 1 + len(SplitEntities(review.Diseases)) + len(SplitEntities(review.Symptoms)) + len(SplitEntities(review.Medicines))
	assert.Equal(t, want, len(recs))
	assert.Equal(t, 6, len(recs))
	assert.Equal(t, "tagger missed dosage", recs[0].Feedback)
}
