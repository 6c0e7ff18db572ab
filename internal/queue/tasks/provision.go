package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/motia-studio/engine/internal/services"
	appErr "github.com/motia-studio/engine/pkg/errors"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

// ProvisionTaskHandler runs deployment:provision tasks on the worker.
type ProvisionTaskHandler struct {
	deploySvc services.DeploymentService
}

func NewProvisionTaskHandler(deploySvc services.DeploymentService) *ProvisionTaskHandler {
	return &ProvisionTaskHandler{deploySvc: deploySvc}
}

func (h *ProvisionTaskHandler) HandleProvision(ctx context.Context, t *asynq.Task) error {
	var job services.ProvisionJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		logger.L().Error("invalid provision task payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if job.DeploymentID == "" {
		logger.L().Error("provision task without deployment id")
		return fmt.Errorf("missing deployment_id: %w", asynq.SkipRetry)
	}

	logger.L().Info("handling provision task", zap.String("deployment_id", job.DeploymentID))

	if err := h.deploySvc.RunJob(ctx, job); err != nil {
		// Retried even when not_found: the deployment may not have reached
		// shared storage yet.
		logger.L().Error("provision task failed", zap.String("deployment_id", job.DeploymentID),
			zap.String("code", string(appErr.CodeOf(err))), zap.Error(err))
		return err
	}
	return nil
}
