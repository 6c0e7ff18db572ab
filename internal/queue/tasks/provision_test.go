package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/motia-studio/engine/internal/models"
	"github.com/motia-studio/engine/internal/services"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests (required by tasks)
	logger.UseNop()
	os.Exit(m.Run())
}

type mockDeploymentService struct {
	mock.Mock
}

func (m *mockDeploymentService) Deploy(ctx context.Context, projectID string) (*services.DeployResult, error) {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.(*services.DeployResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeploymentService) StartDeployment(ctx context.Context, project *models.Project) (*services.DeployResult, error) {
	args := m.Called(ctx, project)
	if v := args.Get(0); v != nil {
		return v.(*services.DeployResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeploymentService) GetDeploymentStatus(ctx context.Context, deploymentID string) (*models.Deployment, bool) {
	args := m.Called(ctx, deploymentID)
	if v := args.Get(0); v != nil {
		return v.(*models.Deployment), args.Bool(1)
	}
	return nil, args.Bool(1)
}

func (m *mockDeploymentService) ListByProject(ctx context.Context, projectID string) []models.Deployment {
	args := m.Called(ctx, projectID)
	if v := args.Get(0); v != nil {
		return v.([]models.Deployment)
	}
	return nil
}

func (m *mockDeploymentService) Advance(ctx context.Context, deploymentID string, project models.Project) (*models.Deployment, error) {
	args := m.Called(ctx, deploymentID, project)
	if v := args.Get(0); v != nil {
		return v.(*models.Deployment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeploymentService) RunJob(ctx context.Context, job services.ProvisionJob) error {
	return m.Called(ctx, job).Error(0)
}

func provisionTask(t *testing.T, job services.ProvisionJob) *asynq.Task {
	t.Helper()
	pb, err := json.Marshal(job)
	require.NoError(t, err)
	return asynq.NewTask(services.TaskTypeProvision, pb)
}

func TestHandleProvision_Success(t *testing.T) {
	svc := &mockDeploymentService{}
	h := NewProvisionTaskHandler(svc)
	job := services.ProvisionJob{DeploymentID: "dep_1", ProjectID: "proj_1"}

	svc.On("RunJob", mock.Anything, job).Return(nil).Once()
	require.NoError(t, h.HandleProvision(context.Background(), provisionTask(t, job)))
	svc.AssertExpectations(t)
}

func TestHandleProvision_BadPayloadSkipsRetry(t *testing.T) {
	svc := &mockDeploymentService{}
	h := NewProvisionTaskHandler(svc)

	err := h.HandleProvision(context.Background(), asynq.NewTask(services.TaskTypeProvision, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleProvision(context.Background(), provisionTask(t, services.ProvisionJob{}))
	require.ErrorIs(t, err, asynq.SkipRetry)
	svc.AssertNotCalled(t, "RunJob", mock.Anything, mock.Anything)
}

func TestHandleProvision_RetryPolicy(t *testing.T) {
	svc := &mockDeploymentService{}
	h := NewProvisionTaskHandler(svc)
	gone := services.ProvisionJob{DeploymentID: "dep_gone"}
	flaky := services.ProvisionJob{DeploymentID: "dep_flaky"}

	svc.On("RunJob", mock.Anything, gone).Return(appErr.New(appErr.CodeNotFound, "deployment not found")).Once()
	svc.On("RunJob", mock.Anything, flaky).Return(errors.New("redis timeout")).Once()

	err := h.HandleProvision(context.Background(), provisionTask(t, gone))
	require.True(t, appErr.IsCode(err, appErr.CodeNotFound))
	require.NotErrorIs(t, err, asynq.SkipRetry)

	err = h.HandleProvision(context.Background(), provisionTask(t, flaky))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}
