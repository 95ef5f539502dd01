// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browse

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/medonboard/pkg/types"
)

// ErrNotFound reports a selected name that the knowledge base lacks.
var ErrNotFound = errors.New("not found")

// References serves the disease and medicine knowledge bases. The single
// lookups return the first fact with the exact name.
type References interface {
	Diseases() ([]types.DiseaseFact, error)
	Medicines() ([]types.MedicineFact, error)
	Disease(name string) (types.DiseaseFact, bool, error)
	Medicine(name string) (types.MedicineFact, bool, error)
}

// CaseLoader reads the case table.
type CaseLoader interface {
	LoadTable(ctx context.Context) (*types.Table, error)
}

// RelatedCase is one entry of a related case listing.
type RelatedCase struct {
	Excerpt string           `json:"excerpt"`
	Record  types.CaseRecord `json:"record"`
}

// DiseaseView is the content of the Disease screen.
type DiseaseView struct {
	// Available is false when the disease knowledge base is missing.
	Available bool               `json:"available"`
	Names     []string           `json:"names,omitempty"`
	Selected  string             `json:"selected,omitempty"`
	Fact      *types.DiseaseFact `json:"fact,omitempty"`

	// CasesAvailable is false when no case table exists yet.
	CasesAvailable bool          `json:"cases_available"`
	Related        []RelatedCase `json:"related"`
}

// MedicineView is the content of the Medicine screen.
type MedicineView struct {
	Available      bool                `json:"available"`
	Names          []string            `json:"names,omitempty"`
	Selected       string              `json:"selected,omitempty"`
	Fact           *types.MedicineFact `json:"fact,omitempty"`
	CasesAvailable bool                `json:"cases_available"`
	Related        []RelatedCase       `json:"related"`
}

// CaseStudyView is the content of the Case Study screen.
type CaseStudyView struct {
	Available bool         `json:"available"`
	Table     *types.Table `json:"table,omitempty"`
}

// Service assembles the browse views.
type Service struct {
	refs   References
	cases  CaseLoader
	logger *logrus.Logger
}

// NewService returns a service reading from refs and cases.
func NewService(refs References, cases CaseLoader, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{refs: refs, cases: cases, logger: logger}
}

// DiseaseNames returns the distinct disease names in file order.
func (s *Service) DiseaseNames() ([]string, error) {
	facts, err := s.refs.Diseases()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(facts))
	for i, f := range facts {
		names[i] = f.Name
	}
	return UniqueValues(names), nil
}

// MedicineNames returns the distinct medicine names in file order.
func (s *Service) MedicineNames() ([]string, error) {
	facts, err := s.refs.Medicines()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(facts))
	for i, f := range facts {
		names[i] = f.Name
	}
	return UniqueValues(names), nil
}

// Disease returns the fact card for name and the case studies that
// mention it. An empty name selects the first disease. A missing
// knowledge base yields a view with Available false and no error.
func (s *Service) Disease(ctx context.Context, name string) (DiseaseView, error) {
	names, err := s.DiseaseNames()
	if errors.Is(err, types.ErrStoreUnavailable) {
		return DiseaseView{}, nil
	}
	if err != nil {
		return DiseaseView{}, fmt.Errorf("loading diseases: %w", err)
	}

	view := DiseaseView{Available: true, Names: names}
	if name == "" {
		if len(names) == 0 {
			return view, nil
		}
		name = names[0]
	}
	fact, ok, err := s.refs.Disease(name)
	if err != nil {
		return view, fmt.Errorf("loading disease %q: %w", name, err)
	}
	if !ok {
		return view, fmt.Errorf("disease %q: %w", name, ErrNotFound)
	}
	view.Fact = &fact
	view.Selected = name

	view.CasesAvailable, view.Related, err = s.related(ctx, name)
	if err != nil {
		return view, err
	}
	return view, nil
}

// Medicine returns the fact card for name and the case studies that
// mention it. It behaves like Disease.
func (s *Service) Medicine(ctx context.Context, name string) (MedicineView, error) {
	names, err := s.MedicineNames()
	if errors.Is(err, types.ErrStoreUnavailable) {
		return MedicineView{}, nil
	}
	if err != nil {
		return MedicineView{}, fmt.Errorf("loading medicines: %w", err)
	}

	view := MedicineView{Available: true, Names: names}
	if name == "" {
		if len(names) == 0 {
			return view, nil
		}
		name = names[0]
	}
	fact, ok, err := s.refs.Medicine(name)
	if err != nil {
		return view, fmt.Errorf("loading medicine %q: %w", name, err)
	}
	if !ok {
		return view, fmt.Errorf("medicine %q: %w", name, ErrNotFound)
	}
	view.Fact = &fact
	view.Selected = name

	view.CasesAvailable, view.Related, err = s.related(ctx, name)
	if err != nil {
		return view, err
	}
	return view, nil
}

// CaseStudies returns the Case Study rows. A missing case table yields a
// view with Available false.
func (s *Service) CaseStudies(ctx context.Context) (CaseStudyView, error) {
	table, err := s.cases.LoadTable(ctx)
	if errors.Is(err, types.ErrStoreUnavailable) {
		return CaseStudyView{}, nil
	}
	if err != nil {
		return CaseStudyView{}, fmt.Errorf("loading cases: %w", err)
	}
	return CaseStudyView{Available: true, Table: CaseStudies(table)}, nil
}

func (s *Service) related(ctx context.Context, name string) (bool, []RelatedCase, error) {
	table, err := s.cases.LoadTable(ctx)
	if errors.Is(err, types.ErrStoreUnavailable) {
		s.logger.WithField("selection", name).Debug("No case table yet")
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("loading cases: %w", err)
	}

	related := []RelatedCase{}
	for _, r := range RelatedCases(table, name) {
		related = append(related, RelatedCase{Excerpt: Listing(r.Text), Record: r})
	}
	return true, related, nil
}
