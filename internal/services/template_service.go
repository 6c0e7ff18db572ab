package services

import (
	"context"

	"github.com/motia-studio/engine/internal/models"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

type TemplateService interface {
	List(ctx context.Context) []models.TemplateSummary
	Get(ctx context.Context, templateID string) (*models.Template, error)
	// Instantiate copies the template's files into a new ready project.
	Instantiate(ctx context.Context, templateID, userID string) (*models.Project, error)
}

// TemplateStore is the part of the record store templates need.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id string) (*models.Template, bool)
	ListTemplates(ctx context.Context) []models.Template
	CreateProject(ctx context.Context, p models.Project) (*models.Project, error)
}

type templateService struct {
	store TemplateStore
}

func NewTemplateService(store TemplateStore) TemplateService {
	return &templateService{store: store}
}

var _ TemplateService = (*templateService)(nil)

func (s *templateService) List(ctx context.Context) []models.TemplateSummary {
	list := s.store.ListTemplates(ctx)
	out := make([]models.TemplateSummary, 0, len(list))
	for _, t := range list {
		out = append(out, t.Summary())
	}
	return out
}

func (s *templateService) Get(ctx context.Context, templateID string) (*models.Template, error) {
	t, ok := s.store.GetTemplate(ctx, templateID)
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "Template not found").WithMeta("templateId", templateID)
	}
	return t, nil
}

func (s *templateService) Instantiate(ctx context.Context, templateID, userID string) (*models.Project, error) {
	t, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.CreateProject(ctx, models.Project{
		UserID:      userID,
		Name:        t.Name,
		Description: t.Description,
		Status:      models.ProjectReady,
		Language:    models.LanguageTypeScript,
		TemplateID:  t.ID,
		Files:       t.Files,
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("project created from template", zap.String("project_id", p.ID), zap.String("template_id", t.ID))
	return p, nil
}
