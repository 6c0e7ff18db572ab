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

const templateIDPrefix = "tpl"

func (s *Store) CreateTemplate(ctx context.Context, t models.Template) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	if t.ID == "" {
		t.ID = utils.NewID(templateIDPrefix)
	} else if _, exists := s.templates[t.ID]; exists || s.takenLocked(storage.Templates, t.ID) {
		return nil, appErr.New(appErr.CodeConflict, "template already exists").WithMeta("id", t.ID)
	}
	t = t.Clone()

	s.templates[t.ID] = t
	if err := s.persistLocked(ctx, storage.Templates); err != nil {
		delete(s.templates, t.ID)
		return nil, err
	}
	out := t.Clone()
	return &out, nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	t, ok := s.templates[id]
	if !ok {
		return nil, false
	}
	out := t.Clone()
	return &out, true
}

// ListTemplates returns every template ordered by name.
func (s *Store) ListTemplates(ctx context.Context) []models.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	out := make([]models.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// SeedTemplates inserts the templates whose ids are not yet stored and
// persists once. It returns how many were added.
func (s *Store) SeedTemplates(ctx context.Context, templates []models.Template) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked(ctx)

	var added []string
	for _, t := range templates {
		if t.ID == "" {
			continue
		}
		if _, exists := s.templates[t.ID]; exists || s.takenLocked(storage.Templates, t.ID) {
			continue
		}
		s.templates[t.ID] = t.Clone()
		added = append(added, t.ID)
	}
	if len(added) == 0 {
		return 0, nil
	}
	if err := s.persistLocked(ctx, storage.Templates); err != nil {
		for _, id := range added {
			delete(s.templates, id)
		}
		return 0, err
	}
	s.log.Info("templates seeded", zap.Int("added", len(added)))
	return len(added), nil
}
