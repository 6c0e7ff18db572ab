package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/motia-studio/engine/internal/services"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

const (
	provisionMaxRetry = 3
	provisionTimeout  = 5 * time.Minute
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqRunner hands jobs to a Redis-backed asynq queue; cmd/worker runs them.
type AsynqRunner struct {
	client Enqueuer
	queue  string
}

var _ services.Runner = (*AsynqRunner)(nil)

// NewAsynqRunner enqueues onto queue, or asynq's default queue when empty.
func NewAsynqRunner(client Enqueuer, queue string) *AsynqRunner {
	return &AsynqRunner{client: client, queue: queue}
}

// NewProvisionTask builds the task carrying job.
func NewProvisionTask(job services.ProvisionJob) (*asynq.Task, error) {
	pb, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(services.TaskTypeProvision, pb), nil
}

func (r *AsynqRunner) Schedule(ctx context.Context, job services.ProvisionJob) error {
	task, err := NewProvisionTask(job)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.MaxRetry(provisionMaxRetry), asynq.Timeout(provisionTimeout)}
	if r.queue != "" {
		opts = append(opts, asynq.Queue(r.queue))
	}
	info, err := r.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return err
	}
	logger.L().Info("provision task enqueued", zap.String("deployment_id", job.DeploymentID),
		zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}
