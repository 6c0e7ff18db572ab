package store

import (
	"context"
	"sort"

	"github.com/motia-studio/engine/internal/models"
	"github.com/motia-studio/engine/internal/storage"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/utils"
	"go.uber.org/zap"
)

const deploymentIDPrefix = "dep"

// CreateDeployment stores d in the deploying state. The project reference
// is not checked here.
func (s *Store) CreateDeployment(ctx context.Context, d models.Deployment) (*models.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	if d.ID == "" {
		d.ID = utils.NewID(deploymentIDPrefix)
	} else if _, exists := s.deployments[d.ID]; exists || s.takenLocked(storage.Deployments, d.ID) {
		return nil, appErr.New(appErr.CodeConflict, "deployment already exists").WithMeta("id", d.ID)
	}
	if d.Status == "" {
		d.Status = models.DeploymentDeploying
	}
	if d.Status != models.DeploymentDeploying {
		return nil, appErr.New(appErr.CodeInvalid, "deployments start in the deploying state")
	}
	if d.DeployedAt.IsZero() {
		d.DeployedAt = s.now()
	}
	if d.Config == (models.DeploymentConfig{}) {
		d.Config = models.DefaultDeploymentConfig
	}
	if err := d.Check(); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid deployment")
	}
	d = d.Clone()

	s.deployments[d.ID] = d
	if err := s.persistLocked(ctx, storage.Deployments); err != nil {
		delete(s.deployments, d.ID)
		return nil, err
	}
	s.log.Info("deployment created", zap.String("deployment_id", d.ID), zap.String("project_id", d.ProjectID))
	out := d.Clone()
	return &out, nil
}

// GetDeployment returns the deployment with id, or false when there is none.
func (s *Store) GetDeployment(ctx context.Context, id string) (*models.Deployment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	d, ok := s.deployments[id]
	if !ok {
		return nil, false
	}
	out := d.Clone()
	return &out, true
}

// UpdateDeployment merges patch onto the deployment. Patches that would move
// a terminal deployment, or break the metrics/error pairing with its status,
// are rejected with a conflict error. A missing id yields (nil, false, nil).
func (s *Store) UpdateDeployment(ctx context.Context, id string, patch models.DeploymentPatch) (*models.Deployment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	prev, ok := s.deployments[id]
	if !ok {
		return nil, false, nil
	}
	next := prev.Clone()
	patch.Apply(&next)
	if !prev.Status.CanTransition(next.Status) {
		return nil, true, appErr.New(appErr.CodeConflict, "illegal deployment transition").
			WithMeta("from", string(prev.Status)).
			WithMeta("to", string(next.Status))
	}
	if err := next.Check(); err != nil {
		return nil, true, appErr.Wrap(err, appErr.CodeConflict, "inconsistent deployment update")
	}

	s.deployments[id] = next
	if err := s.persistLocked(ctx, storage.Deployments); err != nil {
		s.deployments[id] = prev
		return nil, true, err
	}
	if next.Status != prev.Status {
		s.log.Info("deployment status changed", zap.String("deployment_id", id),
			zap.String("from", string(prev.Status)), zap.String("to", string(next.Status)))
	}
	out := next.Clone()
	return &out, true, nil
}

// ListDeploymentsByProject returns the project's deployments, newest first.
func (s *Store) ListDeploymentsByProject(ctx context.Context, projectID string) []models.Deployment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	out := make([]models.Deployment, 0)
	for _, d := range s.deployments {
		if d.ProjectID == projectID {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeployedAt.Equal(out[j].DeployedAt.Time) {
			return out[j].DeployedAt.Before(out[i].DeployedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
