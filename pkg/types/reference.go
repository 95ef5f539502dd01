// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DiseaseFact is one row of the disease knowledge base
// (columns Name, Symptoms, Treatments).
type DiseaseFact struct {
	// Name is the disease name users select in the Disease view.
	Name string `json:"name" yaml:"name"`

	// Symptoms is the free-text symptom description.
	Symptoms string `json:"symptoms" yaml:"symptoms"`

	// Treatments is the free-text treatment description.
	Treatments string `json:"treatments" yaml:"treatments"`
}

// MedicineFact is one row of the medicine knowledge base
// (columns name, description, indication, dosage).
type MedicineFact struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Indication  string `json:"indication" yaml:"indication"`
	Dosage      string `json:"dosage" yaml:"dosage"`
}

// Role gates which screens a signed-in user can reach.
type Role string

const (
	RoleExpert  Role = "expert"
	RoleTrainee Role = "trainee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleExpert || r == RoleTrainee
}

// Identity is a verified user.
type Identity struct {
	Username string `json:"username" yaml:"username"`
	Role     Role   `json:"role" yaml:"role"`
}

// Page names the screens of the application.
type Page string

const (
	PageHome      Page = "Home"
	PageDisease   Page = "Disease"
	PageMedicine  Page = "Medicine"
	PageCaseStudy Page = "Case Study"
	PageAddCase   Page = "Add Case Study"
)
