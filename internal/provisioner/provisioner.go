// Package provisioner rolls out a project. The only implementation
// simulates the rollout: it waits a fixed delay and reports a URL derived
// from the project plus a zeroed metrics snapshot.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/motia-studio/engine/internal/models"
	"github.com/motia-studio/engine/pkg/logger"
	"github.com/motia-studio/engine/pkg/utils"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrInvalidInput = errors.New("invalid input")
)

// Provisioner takes a project live for one deployment.
type Provisioner interface {
	Provision(ctx context.Context, req *Request) (*Result, error)
}

// Request describes what is being rolled out.
type Request struct {
	DeploymentID string
	Project      models.Project
	Config       models.DeploymentConfig
}

// Result is what a successful rollout reports.
type Result struct {
	URL     string
	Metrics models.DeploymentMetrics
}

// SimulatedProvisioner pretends to build and deploy a project.
type SimulatedProvisioner struct {
	delay  time.Duration
	domain string
}

var _ Provisioner = (*SimulatedProvisioner)(nil)

func NewSimulatedProvisioner(delay time.Duration, domain string) *SimulatedProvisioner {
	if domain == "" {
		domain = "motia.app"
	}
	return &SimulatedProvisioner{delay: delay, domain: domain}
}

func (p *SimulatedProvisioner) Provision(ctx context.Context, req *Request) (*Result, error) {
	if req == nil || req.DeploymentID == "" || req.Project.ID == "" {
		return nil, ErrInvalidInput
	}

	logger.L().Info("provisioning", zap.String("deployment_id", req.DeploymentID),
		zap.String("project_id", req.Project.ID), zap.Duration("delay", p.delay))

	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("provisioning interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return &Result{
		URL:     URLFor(req.Project, p.domain),
		Metrics: *models.InitialMetrics(),
	}, nil
}

// URLFor derives the public URL of a deployed project.
func URLFor(project models.Project, domain string) string {
	return fmt.Sprintf("https://%s-%s.%s", utils.Slugify(project.Name), project.ID, domain)
}
