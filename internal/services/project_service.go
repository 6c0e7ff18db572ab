package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/motia-studio/engine/internal/generator"
	"github.com/motia-studio/engine/internal/metrics"
	"github.com/motia-studio/engine/internal/models"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

// Service interface and related DTOs
type ProjectService interface {
	// Generate creates a project from a description and fills it with
	// generated files. The project is persisted even when generation fails,
	// in the error state.
	Generate(ctx context.Context, userID string, input *GenerateInput) (*GenerateResult, error)

	GetProject(ctx context.Context, projectID, userID string) (*models.Project, error)
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)
	UpdateProject(ctx context.Context, projectID, userID string, updates *UpdateProjectInput) (*models.Project, error)
	// DeleteProject removes the project. Its deployments are left in place.
	DeleteProject(ctx context.Context, projectID, userID string) error
}

type GenerateInput struct {
	Description string
	Language    string
	Features    []string
	// Name overrides the name derived from the description.
	Name string
}

type GenerateResult struct {
	Project       *models.Project `json:"project"`
	EstimatedTime int             `json:"estimatedTime"`
	Warnings      []string        `json:"warnings,omitempty"`
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
	Files       []models.ProjectFile
}

// ProjectStore is the part of the record store projects need.
type ProjectStore interface {
	CreateProject(ctx context.Context, p models.Project) (*models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, bool)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, bool, error)
	ListProjects(ctx context.Context, userID string) []models.Project
	DeleteProject(ctx context.Context, id string) (bool, error)
}

// EstimateGenerationTime returns the advertised generation time in seconds.
func EstimateGenerationTime(description string) int {
	chars := int(math.Ceil(float64(len(description)) / 100))
	return min(15+chars*5, 60)
}

type projectService struct {
	store     ProjectStore
	generator generator.Generator
}

func NewProjectService(store ProjectStore, gen generator.Generator) ProjectService {
	return &projectService{store: store, generator: gen}
}

// Ensure interfaces are satisfied at compile time
var _ ProjectService = (*projectService)(nil)

func (s *projectService) Generate(ctx context.Context, userID string, input *GenerateInput) (*GenerateResult, error) {
	if input == nil || len(strings.TrimSpace(input.Description)) < generator.MinDescriptionLength {
		return nil, appErr.New(appErr.CodeInvalid, "Description must be at least 10 characters")
	}
	description := strings.TrimSpace(input.Description)
	lang := models.ValidateLanguage(input.Language)
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = generator.ExtractProjectName(description)
	}

	logger.L().Info("generate project", zap.String("user_id", userID), zap.String("language", string(lang)),
		zap.String("generator", s.generator.Name()))

	p, err := s.store.CreateProject(ctx, models.Project{
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      models.ProjectGenerating,
		Language:    lang,
	})
	if err != nil {
		return nil, err
	}

	files, genErr := s.generator.Generate(ctx, generator.Request{
		Description: description,
		Language:    lang,
		Features:    input.Features,
	})
	if genErr == nil && len(files) == 0 {
		files = generator.Fallback(description, lang)
	}
	if genErr != nil {
		metrics.Generation(s.generator.Name(), "error")
		logger.L().Error("generation failed", zap.String("project_id", p.ID), zap.Error(genErr))
		var ae *appErr.AppError
		if !errors.As(genErr, &ae) || ae.Code != appErr.CodeGenerationFailure {
			ae = appErr.Wrap(genErr, appErr.CodeGenerationFailure, appErr.MessageOf(genErr))
		}
		status := models.ProjectError
		msg := ae.Message
		if _, _, err := s.store.UpdateProject(ctx, p.ID, models.ProjectPatch{Status: &status, Error: &msg}); err != nil {
			logger.L().Error("record generation failure", zap.String("project_id", p.ID), zap.Error(err))
		}
		return nil, ae.WithMeta("projectId", p.ID)
	}

	warnings := generator.Validate(files)
	for _, w := range warnings {
		logger.L().Warn("generated code validation", zap.String("project_id", p.ID), zap.String("warning", w))
	}

	ready := models.ProjectReady
	updated, ok, err := s.store.UpdateProject(ctx, p.ID, models.ProjectPatch{Status: &ready, Files: files})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "Project not found").WithMeta("projectId", p.ID)
	}
	metrics.Generation(s.generator.Name(), "ok")
	logger.L().Info("project generated", zap.String("project_id", p.ID), zap.Int("files", len(files)))

	return &GenerateResult{
		Project:       updated,
		EstimatedTime: EstimateGenerationTime(description),
		Warnings:      warnings,
	}, nil
}

// owned fetches the project and hides projects of other users.
func (s *projectService) owned(ctx context.Context, projectID, userID string) (*models.Project, error) {
	p, ok := s.store.GetProject(ctx, projectID)
	if !ok || (userID != "" && p.UserID != userID) {
		return nil, appErr.New(appErr.CodeNotFound, "Project not found").WithMeta("projectId", projectID)
	}
	return p, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID, userID string) (*models.Project, error) {
	return s.owned(ctx, projectID, userID)
}

func (s *projectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.store.ListProjects(ctx, userID), nil
}

func (s *projectService) UpdateProject(ctx context.Context, projectID, userID string, updates *UpdateProjectInput) (*models.Project, error) {
	logger.L().Info("update project", zap.String("project_id", projectID), zap.String("user_id", userID))
	if _, err := s.owned(ctx, projectID, userID); err != nil {
		return nil, err
	}
	if updates == nil {
		updates = &UpdateProjectInput{}
	}
	if updates.Name != nil && strings.TrimSpace(*updates.Name) == "" {
		return nil, appErr.New(appErr.CodeInvalid, "name must not be empty")
	}

	p, ok, err := s.store.UpdateProject(ctx, projectID, models.ProjectPatch{
		Name:        updates.Name,
		Description: updates.Description,
		Files:       updates.Files,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "Project not found").WithMeta("projectId", projectID)
	}
	return p, nil
}

func (s *projectService) DeleteProject(ctx context.Context, projectID, userID string) error {
	logger.L().Info("delete project", zap.String("project_id", projectID), zap.String("user_id", userID))
	if _, err := s.owned(ctx, projectID, userID); err != nil {
		return err
	}
	ok, err := s.store.DeleteProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !ok {
		return appErr.New(appErr.CodeNotFound, "Project not found").WithMeta("projectId", projectID)
	}
	return nil
}
