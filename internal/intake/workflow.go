// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package intake implements the case intake workflow: a note is drafted,
// analyzed by the classifier and entity extractor, reviewed by an expert,
// and saved as one primary record plus one derived record per entity.
package intake

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/medonboard/internal/inference"
	"github.com/pdiddy/medonboard/pkg/types"
)

// State is the position of a note in the workflow.
type State int

const (
	StateEmpty State = iota
	StateDrafted
	StateAnalyzed
	StateReviewed
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDrafted:
		return "drafted"
	case StateAnalyzed:
		return "analyzed"
	case StateReviewed:
		return "reviewed"
	case StateSaved:
		return "saved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Appender persists the records of one note as a single unit.
type Appender interface {
	Append(ctx context.Context, records []types.CaseRecord) error
}

// Analysis is the inference output for the current note.
type Analysis struct {
	Label types.Category     `json:"label"`
	Spans []types.EntitySpan `json:"spans"`

	// Defaults are the review fields as prefilled from Label and Spans.
	Defaults Review `json:"defaults"`
}

// Snapshot is a read-only copy of the workflow state.
type Snapshot struct {
	State    State     `json:"state"`
	Note     string    `json:"note"`
	Stale    bool      `json:"stale"`
	Analysis *Analysis `json:"analysis,omitempty"`
	Review   *Review   `json:"review,omitempty"`
}

// SaveResult reports a completed save.
type SaveResult struct {
	State   State              `json:"state"`
	Records []types.CaseRecord `json:"records"`
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithClock replaces time.Now as the source of record timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(w *Workflow) { w.logger = logger }
}

// Workflow drives one note at a time for one author. It is safe for
// concurrent use. State changes are serialized; inference calls are not.
type Workflow struct {
	classifier inference.Classifier
	extractor  inference.Extractor
	store      Appender
	author     string
	now        func() time.Time
	logger     *logrus.Entry

	mu           sync.Mutex
	state        State
	note         string
	analyzedNote string
	analysis     *Analysis
	review       Review
	reviewed     bool
}

// New returns an empty workflow for author.
func New(classifier inference.Classifier, extractor inference.Extractor, store Appender, author string, opts ...Option) *Workflow {
	w := &Workflow{
		classifier: classifier,
		extractor:  extractor,
		store:      store,
		author:     author,
		now:        time.Now,
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithField("author", author)
	return w
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Snapshot returns a copy of the current note, analysis and review fields.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{State: w.state, Note: w.note, Stale: w.stale()}
	if w.analysis != nil {
		a := *w.analysis
		a.Spans = append([]types.EntitySpan(nil), w.analysis.Spans...)
		r := w.review
		snap.Analysis = &a
		snap.Review = &r
	}
	return snap
}

// SetNote replaces the note text. Blank text returns the workflow to
// Empty. Changing the text after analysis makes the analysis stale and
// moves the workflow back to Drafted; the review fields stay visible.
func (w *Workflow) SetNote(text string) State {
	w.mu.Lock()
	defer w.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		w.reset()
		return w.state
	}

	w.note = text
	switch {
	case w.state == StateEmpty:
		w.state = StateDrafted
	case w.analysis != nil && w.stale():
		w.state = StateDrafted
	case w.analysis != nil && w.state == StateDrafted:
		// Edited back to the analyzed text.
		w.state = StateAnalyzed
		if w.reviewed {
			w.state = StateReviewed
		}
	}
	return w.state
}

// Analyze runs the classifier and the extractor on the current note and
// prefills the review fields. A blank note is a validation error. Any
// inference failure leaves the workflow unchanged. Inference runs without
// holding the workflow lock; if the note changes meanwhile the result is
// discarded and a validation error asks for a new analysis.
func (w *Workflow) Analyze(ctx context.Context) (Analysis, error) {
	w.mu.Lock()
	text := w.note
	w.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return Analysis{}, types.NewValidationError("note", "please enter a case note before analysis")
	}

	label, err := w.classifier.Classify(ctx, text)
	if err != nil {
		w.logger.WithError(err).Warn("Classification failed")
		return Analysis{}, &types.InferenceError{Stage: "classify", Err: err}
	}
	if !label.IsClassifierLabel() {
		err := fmt.Errorf("label %q is not a known category", label)
		w.logger.WithError(err).Warn("Classification failed")
		return Analysis{}, &types.InferenceError{Stage: "classify", Err: err}
	}

	spans, err := w.extractor.Extract(ctx, text)
	if err != nil {
		w.logger.WithError(err).Warn("Entity extraction failed")
		return Analysis{}, &types.InferenceError{Stage: "extract", Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.note != text {
		w.logger.Debug("Note changed during analysis")
		return Analysis{}, types.NewValidationError("note", "the note changed during analysis; analyze it again")
	}

	defaults := DefaultReview(label, spans)
	w.analysis = &Analysis{Label: label, Spans: spans, Defaults: defaults}
	w.analyzedNote = text
	w.review = defaults
	w.reviewed = false
	w.state = StateAnalyzed

	w.logger.WithFields(logrus.Fields{
		"label": label,
		"spans": len(spans),
	}).Info("Analyzed case note")
	return *w.analysis, nil
}

// Review replaces the review fields. It requires a current analysis and a
// category from types.ClassifierCategories.
func (w *Workflow) Review(in Review) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateAnalyzed && w.state != StateReviewed {
		return w.state, types.NewValidationError("state", "analyze the note before reviewing")
	}
	if !in.Category.IsClassifierLabel() {
		return w.state, types.NewValidationError("category", fmt.Sprintf("%q is not one of Case Study, Disease, Medicine", in.Category))
	}

	w.review = in
	w.reviewed = true
	w.state = StateReviewed
	return w.state, nil
}

// Save expands the reviewed note into case records and appends them as one
// unit. On a store failure the note, analysis and review are kept so the
// save can be retried. On success the workflow is cleared to Empty.
func (w *Workflow) Save(ctx context.Context) (SaveResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case strings.TrimSpace(w.note) == "":
		return SaveResult{}, types.NewValidationError("note", "please enter a case note before saving")
	case w.analysis == nil:
		return SaveResult{}, types.NewValidationError("analysis", "analyze the note before saving")
	case w.stale():
		return SaveResult{}, types.NewValidationError("note", "the note changed since it was analyzed; analyze it again")
	}

	records := BuildRecords(Submission{
		Text:      w.note,
		Review:    w.review,
		Author:    w.author,
		Timestamp: w.now(),
	})

	if err := w.store.Append(ctx, records); err != nil {
		w.logger.WithError(err).Error("Saving case note failed")
		if types.IsPersistence(err) || types.IsValidation(err) {
			return SaveResult{}, err
		}
		return SaveResult{}, &types.PersistenceError{Op: "save note", Err: err}
	}

	w.logger.WithFields(logrus.Fields{
		"category": w.review.Category,
		"records":  len(records),
	}).Info("Saved case note")

	w.reset()
	return SaveResult{State: StateSaved, Records: records}, nil
}

func (w *Workflow) stale() bool {
	return w.analysis != nil && w.note != w.analyzedNote
}

func (w *Workflow) reset() {
	w.state = StateEmpty
	w.note = ""
	w.analyzedNote = ""
	w.analysis = nil
	w.review = Review{}
	w.reviewed = false
}
