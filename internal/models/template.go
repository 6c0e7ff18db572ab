package models

import "slices"

// Difficulty grades a template.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Template is read-mostly reference data a project can be instantiated from.
type Template struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Difficulty  Difficulty    `json:"difficulty"`
	Features    []string      `json:"features"`
	DeployTime  string        `json:"deployTime"`
	UseCases    []string      `json:"useCases,omitempty"`
	Files       []ProjectFile `json:"files"`
}

// Clone returns a deep copy of t.
func (t Template) Clone() Template {
	out := t
	out.Features = slices.Clone(t.Features)
	out.UseCases = slices.Clone(t.UseCases)
	out.Files = slices.Clone(t.Files)
	return out
}

// TemplateSummary is the list view of a template without file contents.
type TemplateSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Difficulty  Difficulty `json:"difficulty"`
	DeployTime  string     `json:"deployTime"`
	Features    []string   `json:"features"`
}

// Summary returns the list view of t.
func (t Template) Summary() TemplateSummary {
	return TemplateSummary{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Category:    t.Category,
		Difficulty:  t.Difficulty,
		DeployTime:  t.DeployTime,
		Features:    slices.Clone(t.Features),
	}
}
