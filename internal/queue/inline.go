// Package queue provides the Runners that advance deployments after the
// create call has returned.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/motia-studio/engine/internal/services"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
)

var ErrRunnerClosed = errors.New("runner is shut down")

// JobFunc processes one job.
type JobFunc func(ctx context.Context, job services.ProvisionJob) error

// InlineRunner runs jobs on goroutines of the current process. Jobs are
// detached from the scheduling request's cancellation.
type InlineRunner struct {
	mu      sync.Mutex
	handler JobFunc
	closed  bool
	wg      sync.WaitGroup
}

var _ services.Runner = (*InlineRunner)(nil)

func NewInlineRunner() *InlineRunner {
	return &InlineRunner{}
}

// HandleFunc sets the function jobs are dispatched to.
func (r *InlineRunner) HandleFunc(fn JobFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = fn
}

func (r *InlineRunner) Schedule(ctx context.Context, job services.ProvisionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}
	if r.handler == nil {
		return errors.New("inline runner has no handler")
	}
	fn := r.handler
	r.wg.Add(1)
	go r.run(context.WithoutCancel(ctx), fn, job)
	return nil
}

func (r *InlineRunner) run(ctx context.Context, fn JobFunc, job services.ProvisionJob) {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			logger.L().Error("inline job panicked", zap.String("deployment_id", job.DeploymentID),
				zap.String("panic", fmt.Sprint(rec)))
		}
	}()
	if err := fn(ctx, job); err != nil {
		logger.L().Error("inline job failed", zap.String("deployment_id", job.DeploymentID), zap.Error(err))
	}
}

// Shutdown stops accepting jobs and waits for running ones until ctx ends.
func (r *InlineRunner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
