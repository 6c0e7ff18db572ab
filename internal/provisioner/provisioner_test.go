package provisioner

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/motia-studio/engine/internal/models"
	"github.com/motia-studio/engine/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	os.Exit(m.Run())
}

func TestSimulatedProvision(t *testing.T) {
	p := NewSimulatedProvisioner(10*time.Millisecond, "motia.app")
	res, err := p.Provision(context.Background(), &Request{
		DeploymentID: "dep_1",
		Project:      models.Project{ID: "proj_abc", Name: "Todo  API"},
	})
	require.NoError(t, err)
	require.Equal(t, "https://todo-api-proj_abc.motia.app", res.URL)
	require.Equal(t, *models.InitialMetrics(), res.Metrics)
}

func TestProvisionHonoursContext(t *testing.T) {
	p := NewSimulatedProvisioner(time.Hour, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Provision(ctx, &Request{DeploymentID: "dep_1", Project: models.Project{ID: "proj_1"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProvisionRejectsIncompleteRequest(t *testing.T) {
	p := NewSimulatedProvisioner(0, "")
	_, err := p.Provision(context.Background(), &Request{DeploymentID: "dep_1"})
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = p.Provision(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}
