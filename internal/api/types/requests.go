package types

type GenerateRequest struct {
	Description string   `json:"description" validate:"required"`
	Language    string   `json:"language" validate:"omitempty,oneof=typescript python go"`
	Features    []string `json:"features" validate:"omitempty,max=20,dive,max=200"`
	Name        string   `json:"name" validate:"omitempty,max=120"`
}

type FileRequest struct {
	Path     string `json:"path" validate:"required,max=512"`
	Content  string `json:"content"`
	Language string `json:"language" validate:"required"`
}

type ProjectUpdateRequest struct {
	Name        *string       `json:"name" validate:"omitempty,max=120"`
	Description *string       `json:"description"`
	Files       []FileRequest `json:"files" validate:"omitempty,dive"`
}
