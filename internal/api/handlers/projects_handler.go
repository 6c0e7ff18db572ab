package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/motia-studio/engine/internal/api/middleware"
	"github.com/motia-studio/engine/internal/api/types"
	"github.com/motia-studio/engine/internal/api/validators"
	"github.com/motia-studio/engine/internal/models"
	"github.com/motia-studio/engine/internal/services"
)

type ProjectsHandler struct {
	svc services.ProjectService
}

func NewProjectsHandler(svc services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{svc: svc}
}

// Generate creates a project from a description.
func (h *ProjectsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, validators.Message(err))
		return
	}
	res, err := h.svc.Generate(r.Context(), middleware.GetUserID(r.Context()), &services.GenerateInput{
		Description: req.Description,
		Language:    req.Language,
		Features:    req.Features,
		Name:        req.Name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, res)
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListProjects(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := min((page-1)*size, len(items))
	end := min(start+size, len(items))
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    items[start:end],
		Meta: &types.Meta{
			RequestID: middleware.GetRequestID(r.Context()),
			Page:      page,
			PageSize:  size,
			Total:     int64(len(items)),
		},
	})
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProject(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validators.New().Struct(req); err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, validators.Message(err))
		return
	}
	in := &services.UpdateProjectInput{Name: req.Name, Description: req.Description}
	if req.Files != nil {
		in.Files = make([]models.ProjectFile, 0, len(req.Files))
		for _, f := range req.Files {
			in.Files = append(in.Files, models.ProjectFile{Path: f.Path, Content: f.Content, Language: f.Language})
		}
	}
	p, err := h.svc.UpdateProject(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
