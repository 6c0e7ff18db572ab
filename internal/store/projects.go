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

const projectIDPrefix = "proj"

// CreateProject stores p, assigning an id and timestamps when unset.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	if p.ID == "" {
		p.ID = utils.NewID(projectIDPrefix)
	} else if _, exists := s.projects[p.ID]; exists || s.takenLocked(storage.Projects, p.ID) {
		return nil, appErr.New(appErr.CodeConflict, "project already exists").WithMeta("id", p.ID)
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.ProjectGenerating
	}
	if p.Language == "" {
		p.Language = models.LanguageTypeScript
	}
	p = p.Clone()

	s.projects[p.ID] = p
	if err := s.persistLocked(ctx, storage.Projects); err != nil {
		delete(s.projects, p.ID)
		return nil, err
	}
	s.log.Info("project created", zap.String("project_id", p.ID), zap.String("user_id", p.UserID))
	out := p.Clone()
	return &out, nil
}

// GetProject returns the project with id, or false when there is none.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	p, ok := s.projects[id]
	if !ok {
		return nil, false
	}
	out := p.Clone()
	return &out, true
}

// UpdateProject merges patch onto the project and refreshes UpdatedAt. A
// missing id yields (nil, false, nil).
func (s *Store) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	prev, ok := s.projects[id]
	if !ok {
		return nil, false, nil
	}
	next := prev.Clone()
	patch.Apply(&next, s.now())
	if next.Status != "" && !next.Status.Valid() {
		return nil, true, appErr.New(appErr.CodeInvalid, "invalid project status").WithMeta("status", string(next.Status))
	}

	s.projects[id] = next
	if err := s.persistLocked(ctx, storage.Projects); err != nil {
		s.projects[id] = prev
		return nil, true, err
	}
	out := next.Clone()
	return &out, true, nil
}

// ListProjects returns the projects owned by userID, newest first. An empty
// userID lists every project.
func (s *Store) ListProjects(ctx context.Context, userID string) []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	out := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if userID != "" && p.UserID != userID {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt.Time) {
			return out[j].CreatedAt.Before(out[i].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// DeleteProject removes the project. Deployments of the project are kept.
func (s *Store) DeleteProject(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	prev, ok := s.projects[id]
	if !ok {
		return false, nil
	}
	delete(s.projects, id)
	if err := s.persistLocked(ctx, storage.Projects); err != nil {
		s.projects[id] = prev
		return true, err
	}
	s.log.Info("project deleted", zap.String("project_id", id))
	return true, nil
}
