package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/motia-studio/engine/internal/api/middleware"
	"github.com/motia-studio/engine/internal/services"
)

type TemplatesHandler struct {
	svc services.TemplateService
}

func NewTemplatesHandler(svc services.TemplateService) *TemplatesHandler {
	return &TemplatesHandler{svc: svc}
}

func (h *TemplatesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, h.svc.List(r.Context()))
}

func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, t)
}

func (h *TemplatesHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Instantiate(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, p)
}
