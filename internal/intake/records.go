// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package intake

import (
	"strings"
	"time"

	"github.com/pdiddy/medonboard/pkg/types"
)

// Review holds the human-editable fields of an analyzed note.
type Review struct {
	Category  types.Category `json:"category"`
	Diseases  string         `json:"diseases"`
	Symptoms  string         `json:"symptoms"`
	Medicines string         `json:"medicines"`
	Feedback  string         `json:"feedback"`
}

// entityField returns the review string holding entities of kind.
func (r Review) entityField(kind types.EntityKind) string {
	switch kind {
	case types.EntityDisease:
		return r.Diseases
	case types.EntitySymptom:
		return r.Symptoms
	case types.EntityMedicine:
		return r.Medicines
	}
	return ""
}

// Submission is everything needed to expand one note into case records.
type Submission struct {
	Text      string
	Review    Review
	Author    string
	Timestamp time.Time
}

// BuildRecords expands a submission into its primary record followed by one
// derived record per entity piece: diseases first, then symptoms, then
// medicines, each in the order written. Empty pieces are dropped and
// repeated pieces are kept. Every record shares the submission timestamp.
func BuildRecords(sub Submission) []types.CaseRecord {
	records := []types.CaseRecord{{
		Text:      sub.Text,
		Category:  sub.Review.Category,
		Diseases:  sub.Review.Diseases,
		Symptoms:  sub.Review.Symptoms,
		Medicines: sub.Review.Medicines,
		Feedback:  sub.Review.Feedback,
		Author:    sub.Author,
		Timestamp: sub.Timestamp,
	}}

	for _, kind := range types.EntityKinds {
		for _, piece := range SplitEntities(sub.Review.entityField(kind)) {
			records = append(records, types.CaseRecord{
				Text:      piece,
				Category:  kind.Category(),
				Author:    sub.Author,
				Timestamp: sub.Timestamp,
			})
		}
	}
	return records
}

// SplitEntities splits a review string on commas, trims each piece and
// drops the empty ones.
func SplitEntities(s string) []string {
	var out []string
	for _, piece := range strings.Split(s, ",") {
		if piece = strings.TrimSpace(piece); piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// JoinSpans joins the text of every span of kind with ", ", in span order.
func JoinSpans(spans []types.EntitySpan, kind types.EntityKind) string {
	var texts []string
	for _, s := range spans {
		if s.Kind == kind {
			texts = append(texts, s.Text)
		}
	}
	return strings.Join(texts, ", ")
}

// DefaultReview returns the review fields prefilled from inference output.
func DefaultReview(label types.Category, spans []types.EntitySpan) Review {
	return Review{
		Category:  label,
		Diseases:  JoinSpans(spans, types.EntityDisease),
		Symptoms:  JoinSpans(spans, types.EntitySymptom),
		Medicines: JoinSpans(spans, types.EntityMedicine),
	}
}
