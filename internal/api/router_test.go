package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/motia-studio/engine/internal/api/handlers"
	"github.com/motia-studio/engine/internal/generator"
	"github.com/motia-studio/engine/internal/models"
	"github.com/motia-studio/engine/internal/provisioner"
	"github.com/motia-studio/engine/internal/queue"
	"github.com/motia-studio/engine/internal/services"
	"github.com/motia-studio/engine/internal/storage"
	"github.com/motia-studio/engine/internal/store"
	"github.com/motia-studio/engine/internal/templates"
	"github.com/motia-studio/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		RequestID string `json:"request_id"`
		Total     int64  `json:"total"`
	} `json:"meta"`
}

type testServer struct {
	handler http.Handler
	store   *store.Store
	runner  *queue.InlineRunner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	s := store.New(storage.NewMemoryAdapter(), store.WithReloadInterval(0))
	builtin, err := templates.Builtin()
	require.NoError(t, err)
	_, err = s.SeedTemplates(ctx, builtin)
	require.NoError(t, err)

	runner := queue.NewInlineRunner()
	deploySvc := services.NewDeploymentService(s, provisioner.NewSimulatedProvisioner(0, "motia.app"), runner)
	runner.HandleFunc(deploySvc.RunJob)
	projectSvc := services.NewProjectService(s, generator.NewMockGenerator(0))

	h := NewRouter(Dependencies{
		DefaultUserID:      "demo-user",
		RateLimitRPS:       1000,
		RateLimitBurst:     1000,
		Stats:              s,
		ProjectsHandler:    handlers.NewProjectsHandler(projectSvc),
		DeploymentsHandler: handlers.NewDeploymentsHandler(projectSvc, deploySvc),
		TemplatesHandler:   handlers.NewTemplatesHandler(services.NewTemplateService(s)),
	})
	t.Cleanup(func() { _ = runner.Shutdown(context.Background()) })
	return &testServer{handler: h, store: s, runner: runner}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 && strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr, env
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, env.Success)
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr, env = ts.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var ready struct {
		Status string      `json:"status"`
		Store  store.Stats `json:"store"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ready))
	require.Equal(t, "ready", ready.Status)
	require.Equal(t, "memory", ready.Store.Adapter)
	require.Equal(t, 5, ready.Store.Templates)

	rr, _ = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGenerateDeployAndPoll(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodPost, "/api/v1/generate", map[string]any{
		"description": "Build a todo API with reminders",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var gen services.GenerateResult
	require.NoError(t, json.Unmarshal(env.Data, &gen))
	require.Equal(t, models.ProjectReady, gen.Project.Status)
	require.Equal(t, "Todo API", gen.Project.Name)
	require.Equal(t, "demo-user", gen.Project.UserID)
	require.NotEmpty(t, gen.Project.Files)
	projectID := gen.Project.ID

	rr, env = ts.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, int64(1), env.Meta.Total)

	rr, env = ts.do(t, http.MethodPost, "/api/v1/projects/"+projectID+"/deploy", nil)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	var started services.DeployResult
	require.NoError(t, json.Unmarshal(env.Data, &started))
	require.Equal(t, models.DeploymentDeploying, started.Status)
	require.Equal(t, min(30+5*len(gen.Project.Files), 90), started.EstimatedTime)

	require.NoError(t, ts.runner.Shutdown(context.Background()))

	rr, env = ts.do(t, http.MethodGet, "/api/v1/deployments/"+started.DeploymentID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var d models.Deployment
	require.NoError(t, json.Unmarshal(env.Data, &d))
	require.Equal(t, models.DeploymentLive, d.Status)
	require.True(t, strings.HasPrefix(d.URL, "https://todo-api-"+projectID))
	require.NotNil(t, d.Metrics)
	require.Equal(t, 0, d.Metrics.Requests)

	rr, env = ts.do(t, http.MethodGet, "/api/v1/projects/"+projectID+"/deployments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []models.Deployment
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
}

func TestDeployRejectsProjectThatIsNotReady(t *testing.T) {
	ts := newTestServer(t)
	p, err := ts.store.CreateProject(context.Background(), models.Project{
		UserID: "demo-user", Name: "Pending", Status: models.ProjectGenerating,
	})
	require.NoError(t, err)

	rr, env := ts.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/deploy", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "not_ready", env.Error.Code)
	require.Empty(t, ts.store.ListDeploymentsByProject(context.Background(), p.ID))
}

func TestGenerateValidation(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodPost, "/api/v1/generate", map[string]any{"description": "short"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Description must be at least 10 characters", env.Error.Message)

	rr, env = ts.do(t, http.MethodPost, "/api/v1/generate", map[string]any{
		"description": "A long enough description", "language": "cobol",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, env.Error.Message, "language")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjectNotFoundAndUpdate(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodGet, "/api/v1/projects/proj_missing", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "not_found", env.Error.Code)

	rr, _ = ts.do(t, http.MethodGet, "/api/v1/deployments/dep_missing", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	p, err := ts.store.CreateProject(context.Background(), models.Project{
		UserID: "demo-user", Name: "Old", Status: models.ProjectReady,
	})
	require.NoError(t, err)

	rr, env = ts.do(t, http.MethodPatch, "/api/v1/projects/"+p.ID, map[string]any{
		"name":  "New",
		"files": []map[string]string{{"path": "src/workflow.ts", "content": "x", "language": "typescript"}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var updated models.Project
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.Equal(t, "New", updated.Name)
	require.Len(t, updated.Files, 1)

	rr, _ = ts.do(t, http.MethodDelete, "/api/v1/projects/"+p.ID, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr, _ = ts.do(t, http.MethodDelete, "/api/v1/projects/"+p.ID, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestOtherUsersProjectsAreHidden(t *testing.T) {
	ts := newTestServer(t)
	p, err := ts.store.CreateProject(context.Background(), models.Project{
		UserID: "someone-else", Name: "Private", Status: models.ProjectReady,
	})
	require.NoError(t, err)
	d, err := ts.store.CreateDeployment(context.Background(), models.Deployment{
		ProjectID: p.ID, Status: models.DeploymentDeploying,
	})
	require.NoError(t, err)

	rr, _ := ts.do(t, http.MethodGet, "/api/v1/projects/"+p.ID, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	rr, _ = ts.do(t, http.MethodGet, "/api/v1/deployments/"+d.ID, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	rr, env := ts.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "[]", string(env.Data))
}

func TestTemplates(t *testing.T) {
	ts := newTestServer(t)

	rr, env := ts.do(t, http.MethodGet, "/api/v1/templates", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []models.TemplateSummary
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 5)

	rr, env = ts.do(t, http.MethodGet, "/api/v1/templates/rest-api-crud", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tpl models.Template
	require.NoError(t, json.Unmarshal(env.Data, &tpl))
	require.NotEmpty(t, tpl.Files)

	rr, env = ts.do(t, http.MethodPost, "/api/v1/templates/rest-api-crud/instantiate", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var p models.Project
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.Equal(t, "rest-api-crud", p.TemplateID)
	require.Equal(t, models.ProjectReady, p.Status)

	rr, _ = ts.do(t, http.MethodGet, "/api/v1/templates/nope", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRateLimitOnAPI(t *testing.T) {
	h := NewRouter(Dependencies{
		DefaultUserID:    "demo-user",
		RateLimitRPS:     0.001,
		RateLimitBurst:   1,
		TemplatesHandler: handlers.NewTemplatesHandler(services.NewTemplateService(store.New(storage.NewMemoryAdapter()))),
	})
	codes := make([]int, 0, 2)
	for range 2 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))
		codes = append(codes, rr.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	// Health checks are not limited.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
