package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/motia-studio/engine/internal/api/middleware"
	"github.com/motia-studio/engine/internal/services"
	appErr "github.com/motia-studio/engine/pkg/errors"
)

type DeploymentsHandler struct {
	projects services.ProjectService
	deploys  services.DeploymentService
}

func NewDeploymentsHandler(projects services.ProjectService, deploys services.DeploymentService) *DeploymentsHandler {
	return &DeploymentsHandler{projects: projects, deploys: deploys}
}

// Create starts a deployment of the project in the path. The response is
// returned while the deployment is still deploying.
func (h *DeploymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.GetProject(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.deploys.StartDeployment(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, res)
}

func (h *DeploymentsHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.projects.GetProject(r.Context(), chi.URLParam(r, "id"), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, h.deploys.ListByProject(r.Context(), p.ID))
}

// Get is the polling read for deployment status.
func (h *DeploymentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := h.deploys.GetDeploymentStatus(r.Context(), id)
	if !ok {
		writeError(w, r, appErr.New(appErr.CodeNotFound, "Deployment not found").WithMeta("deploymentId", id))
		return
	}
	// Deployments of deleted projects stay readable.
	if p, err := h.projects.GetProject(r.Context(), d.ProjectID, ""); err == nil && p.UserID != middleware.GetUserID(r.Context()) {
		writeError(w, r, appErr.New(appErr.CodeNotFound, "Deployment not found").WithMeta("deploymentId", id))
		return
	}
	writeData(w, r, http.StatusOK, d)
}
