package models

import "slices"

// ProjectStatus is the generation state of a project.
type ProjectStatus string

const (
	ProjectGenerating ProjectStatus = "generating"
	ProjectReady      ProjectStatus = "ready"
	ProjectError      ProjectStatus = "error"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectGenerating, ProjectReady, ProjectError:
		return true
	}
	return false
}

// Language is the target language of generated code.
type Language string

const (
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageGo         Language = "go"
)

// ValidateLanguage maps s to a supported language, defaulting to TypeScript.
func ValidateLanguage(s string) Language {
	switch Language(s) {
	case LanguagePython, LanguageGo:
		return Language(s)
	}
	return LanguageTypeScript
}

// Extension returns the source file extension for l.
func (l Language) Extension() string {
	switch l {
	case LanguagePython:
		return "py"
	case LanguageGo:
		return "go"
	}
	return "ts"
}

// ProjectFile is one generated or template source file.
type ProjectFile struct {
	Path     string `json:"path" validate:"required"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// Project is a generated backend owned by a user.
type Project struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	Name        string        `json:"name" validate:"required"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status" validate:"required,oneof=generating ready error"`
	Language    Language      `json:"language" validate:"required,oneof=typescript python go"`
	TemplateID  string        `json:"templateId,omitempty"`
	Files       []ProjectFile `json:"files" validate:"dive"`
	CreatedAt   Time          `json:"createdAt"`
	UpdatedAt   Time          `json:"updatedAt"`
	Error       string        `json:"error,omitempty"`
}

// Clone returns a deep copy of p.
func (p Project) Clone() Project {
	out := p
	out.Files = slices.Clone(p.Files)
	return out
}

// ProjectPatch holds the fields of a partial project update. Nil fields are
// left untouched.
type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *ProjectStatus
	Language    *Language
	TemplateID  *string
	Files       []ProjectFile
	Error       *string
}

// Apply merges the patch onto p and stamps UpdatedAt.
func (patch ProjectPatch) Apply(p *Project, now Time) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Language != nil {
		p.Language = *patch.Language
	}
	if patch.TemplateID != nil {
		p.TemplateID = *patch.TemplateID
	}
	if patch.Files != nil {
		p.Files = slices.Clone(patch.Files)
	}
	if patch.Error != nil {
		p.Error = *patch.Error
	}
	if p.Status != ProjectError {
		p.Error = ""
	}
	p.UpdatedAt = now
}
