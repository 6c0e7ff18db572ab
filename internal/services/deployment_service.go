package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/motia-studio/engine/internal/metrics"
	"github.com/motia-studio/engine/internal/models"
	"github.com/motia-studio/engine/internal/provisioner"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

// TaskTypeProvision is the job type that advances a deployment.
const TaskTypeProvision = "deployment:provision"

const defaultFailureMessage = "Deployment failed"

var errNoResult = errors.New("provisioner returned no result")

// DeploymentService drives the deployment lifecycle: deploying, then live
// or failed. Starting a deployment returns at once; callers poll
// GetDeploymentStatus until the status is terminal.
type DeploymentService interface {
	// Deploy looks up the project and starts a deployment for it.
	Deploy(ctx context.Context, projectID string) (*DeployResult, error)
	StartDeployment(ctx context.Context, project *models.Project) (*DeployResult, error)
	GetDeploymentStatus(ctx context.Context, deploymentID string) (*models.Deployment, bool)
	ListByProject(ctx context.Context, projectID string) []models.Deployment

	// Advance runs the rollout and records the terminal state. Called by runners.
	Advance(ctx context.Context, deploymentID string, project models.Project) (*models.Deployment, error)
	// RunJob loads the records a job refers to and advances the deployment.
	RunJob(ctx context.Context, job ProvisionJob) error
}

// ProvisionJob is the unit of asynchronous work handed to a Runner.
type ProvisionJob struct {
	DeploymentID string `json:"deployment_id"`
	ProjectID    string `json:"project_id"`
}

// Runner schedules ProvisionJobs without blocking the caller.
type Runner interface {
	Schedule(ctx context.Context, job ProvisionJob) error
}

// DeploymentStore is the part of the record store the lifecycle needs.
type DeploymentStore interface {
	GetProject(ctx context.Context, id string) (*models.Project, bool)
	CreateDeployment(ctx context.Context, d models.Deployment) (*models.Deployment, error)
	GetDeployment(ctx context.Context, id string) (*models.Deployment, bool)
	UpdateDeployment(ctx context.Context, id string, patch models.DeploymentPatch) (*models.Deployment, bool, error)
	ListDeploymentsByProject(ctx context.Context, projectID string) []models.Deployment
	// ForceReload drops the cache so records written by other processes are seen.
	ForceReload(ctx context.Context) error
}

// DeployResult is returned synchronously by StartDeployment.
type DeployResult struct {
	DeploymentID  string                  `json:"deploymentId"`
	Status        models.DeploymentStatus `json:"status"`
	EstimatedTime int                     `json:"estimatedTime"`
}

// EstimateDeploymentTime returns the advertised rollout time in seconds.
func EstimateDeploymentTime(fileCount int) int {
	return min(30+5*fileCount, 90)
}

type deploymentService struct {
	store       DeploymentStore
	provisioner provisioner.Provisioner
	runner      Runner
}

func NewDeploymentService(store DeploymentStore, prov provisioner.Provisioner, runner Runner) DeploymentService {
	return &deploymentService{store: store, provisioner: prov, runner: runner}
}

var _ DeploymentService = (*deploymentService)(nil)

func (s *deploymentService) Deploy(ctx context.Context, projectID string) (*DeployResult, error) {
	p, ok := s.store.GetProject(ctx, projectID)
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "Project not found").WithMeta("projectId", projectID)
	}
	return s.StartDeployment(ctx, p)
}

func (s *deploymentService) StartDeployment(ctx context.Context, project *models.Project) (*DeployResult, error) {
	if project == nil {
		return nil, appErr.New(appErr.CodeInvalid, "project is required")
	}
	if project.Status != models.ProjectReady {
		return nil, appErr.New(appErr.CodeNotReady, "Project is not ready for deployment").
			WithMeta("status", string(project.Status))
	}

	d, err := s.store.CreateDeployment(ctx, models.Deployment{
		ProjectID: project.ID,
		Status:    models.DeploymentDeploying,
		Config:    models.DefaultDeploymentConfig,
	})
	if err != nil {
		return nil, err
	}
	metrics.DeploymentStarted()

	job := ProvisionJob{DeploymentID: d.ID, ProjectID: project.ID}
	if s.runner == nil {
		logger.L().Warn("deployment runner not configured, deployment will not advance", zap.String("deployment_id", d.ID))
	} else if err := s.runner.Schedule(ctx, job); err != nil {
		logger.L().Error("schedule deployment failed", zap.Error(err), zap.String("deployment_id", d.ID))
		s.fail(ctx, d.ID, d.DeployedAt, "schedule deployment failed: "+err.Error())
		return nil, appErr.Wrap(err, appErr.CodeInternal, "schedule deployment failed")
	}

	logger.L().Info("deployment started", zap.String("deployment_id", d.ID), zap.String("project_id", project.ID))
	return &DeployResult{
		DeploymentID:  d.ID,
		Status:        d.Status,
		EstimatedTime: EstimateDeploymentTime(len(project.Files)),
	}, nil
}

func (s *deploymentService) GetDeploymentStatus(ctx context.Context, deploymentID string) (*models.Deployment, bool) {
	return s.store.GetDeployment(ctx, deploymentID)
}

func (s *deploymentService) ListByProject(ctx context.Context, projectID string) []models.Deployment {
	return s.store.ListDeploymentsByProject(ctx, projectID)
}

// RunJob may run in another process than the one that created the
// records, so a miss is retried once against a fresh load.
func (s *deploymentService) RunJob(ctx context.Context, job ProvisionJob) error {
	d, ok := s.lookupDeployment(ctx, job.DeploymentID)
	if !ok {
		return appErr.New(appErr.CodeNotFound, "deployment not found").WithMeta("deploymentId", job.DeploymentID)
	}
	if d.Status.Terminal() {
		logger.L().Info("deployment already finished, skipping", zap.String("deployment_id", d.ID), zap.String("status", string(d.Status)))
		return nil
	}
	projectID := job.ProjectID
	if projectID == "" {
		projectID = d.ProjectID
	}
	p, ok := s.store.GetProject(ctx, projectID)
	if !ok {
		s.reload(ctx)
		p, ok = s.store.GetProject(ctx, projectID)
	}
	if !ok {
		s.fail(ctx, d.ID, d.DeployedAt, "Project not found")
		return appErr.New(appErr.CodeNotFound, "Project not found").WithMeta("projectId", projectID)
	}
	_, err := s.Advance(ctx, d.ID, *p)
	return err
}

func (s *deploymentService) lookupDeployment(ctx context.Context, id string) (*models.Deployment, bool) {
	if d, ok := s.store.GetDeployment(ctx, id); ok {
		return d, true
	}
	s.reload(ctx)
	return s.store.GetDeployment(ctx, id)
}

func (s *deploymentService) reload(ctx context.Context) {
	if err := s.store.ForceReload(ctx); err != nil {
		logger.L().Warn("store reload failed", zap.Error(err))
	}
}

func (s *deploymentService) Advance(ctx context.Context, deploymentID string, project models.Project) (*models.Deployment, error) {
	d, ok := s.store.GetDeployment(ctx, deploymentID)
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "deployment not found").WithMeta("deploymentId", deploymentID)
	}

	res, err := s.provision(ctx, d, project)
	if err != nil {
		df := deploymentFailure(err)
		logger.L().Error("deployment failed", zap.String("deployment_id", deploymentID), zap.Error(df))
		return s.fail(ctx, deploymentID, d.DeployedAt, df.Message), nil
	}

	live := models.DeploymentLive
	updated, ok, err := s.store.UpdateDeployment(ctx, deploymentID, models.DeploymentPatch{
		Status:  &live,
		URL:     &res.URL,
		Metrics: &res.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErr.New(appErr.CodeNotFound, "deployment disappeared during rollout").WithMeta("deploymentId", deploymentID)
	}
	metrics.DeploymentFinished(string(models.DeploymentLive), time.Since(d.DeployedAt.Time))
	logger.L().Info("deployment live", zap.String("deployment_id", deploymentID), zap.String("url", res.URL))
	return updated, nil
}

// provision calls the provisioner, turning a panic into an error.
func (s *deploymentService) provision(ctx context.Context, d *models.Deployment, project models.Project) (res *provisioner.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%v", r)
		}
	}()
	res, err = s.provisioner.Provision(ctx, &provisioner.Request{
		DeploymentID: d.ID,
		Project:      project,
		Config:       d.Config,
	})
	if err == nil && res == nil {
		err = errNoResult
	}
	return res, err
}

// deploymentFailure classifies a rollout error. The message is what the
// failed deployment records.
func deploymentFailure(err error) *appErr.AppError {
	var ae *appErr.AppError
	if errors.As(err, &ae) && ae.Code == appErr.CodeDeploymentFailure {
		return ae
	}
	msg := appErr.MessageOf(err)
	if msg == "" {
		msg = defaultFailureMessage
	}
	return appErr.Wrap(err, appErr.CodeDeploymentFailure, msg)
}

// fail records the failed terminal state. The update is best effort: the
// error has already been logged by the caller.
func (s *deploymentService) fail(ctx context.Context, deploymentID string, started models.Time, message string) *models.Deployment {
	if message == "" {
		message = defaultFailureMessage
	}
	failed := models.DeploymentFailed
	d, _, err := s.store.UpdateDeployment(ctx, deploymentID, models.DeploymentPatch{Status: &failed, Error: &message})
	if err != nil {
		logger.L().Error("record deployment failure", zap.String("deployment_id", deploymentID), zap.Error(err))
		return nil
	}
	metrics.DeploymentFinished(string(models.DeploymentFailed), time.Since(started.Time))
	return d
}
