package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/motia-studio/engine/internal/api"
	"github.com/motia-studio/engine/internal/api/handlers"
	"github.com/motia-studio/engine/internal/generator"
	"github.com/motia-studio/engine/internal/provisioner"
	"github.com/motia-studio/engine/internal/queue"
	"github.com/motia-studio/engine/internal/services"
	"github.com/motia-studio/engine/internal/storage"
	"github.com/motia-studio/engine/internal/store"
	"github.com/motia-studio/engine/internal/templates"
	"github.com/motia-studio/engine/pkg/config"
	"github.com/motia-studio/engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting Motia Studio Engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	adapter, err := storage.Select(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer adapter.Close()

	st := store.New(adapter,
		store.WithReloadInterval(cfg.ReloadInterval),
		store.WithPolicy(store.ParsePolicy(cfg.PersistencePolicy)),
	)
	builtin, err := templates.Builtin()
	if err != nil {
		log.Fatal("Failed to load built-in templates", zap.Error(err))
	}
	if n, err := st.SeedTemplates(ctx, builtin); err != nil {
		log.Error("Template seeding failed", zap.Error(err))
	} else {
		log.Info("Templates seeded", zap.Int("added", n))
	}

	gen := newGenerator(cfg)
	prov := provisioner.NewSimulatedProvisioner(cfg.DeployDelay, cfg.DeployDomain)

	var (
		runner   services.Runner
		inline   *queue.InlineRunner
		asynqCli *asynq.Client
	)
	switch cfg.DeployRunner {
	case "asynq":
		asynqCli = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer asynqCli.Close()
		runner = queue.NewAsynqRunner(asynqCli, "")
	default:
		inline = queue.NewInlineRunner()
		runner = inline
	}

	deploySvc := services.NewDeploymentService(st, prov, runner)
	if inline != nil {
		inline.HandleFunc(deploySvc.RunJob)
	}
	projectSvc := services.NewProjectService(st, gen)
	templateSvc := services.NewTemplateService(st)

	if len(cfg.JWTSecret) == 0 {
		log.Warn("JWT_SECRET not set, every request runs as the default user", zap.String("user_id", cfg.DefaultUserID))
	}

	// Create router with dependencies
	router := api.NewRouter(api.Dependencies{
		HMACSecret:         []byte(cfg.JWTSecret),
		DefaultUserID:      cfg.DefaultUserID,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		Stats:              st,
		ProjectsHandler:    handlers.NewProjectsHandler(projectSvc),
		DeploymentsHandler: handlers.NewDeploymentsHandler(projectSvc, deploySvc),
		TemplatesHandler:   handlers.NewTemplatesHandler(templateSvc),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      150 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr),
			zap.String("storage", adapter.Name()), zap.String("generator", gen.Name()),
			zap.String("runner", cfg.DeployRunner))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
	if inline != nil {
		if err := inline.Shutdown(shutdownCtx); err != nil {
			log.Warn("deployments still running at shutdown", zap.Error(err))
		}
	}
}

func newGenerator(cfg *config.Config) generator.Generator {
	if cfg.Generator == "groq" {
		return generator.NewGroqGenerator(cfg.GroqAPIKey,
			generator.WithURL(cfg.GroqAPIURL),
			generator.WithModel(cfg.GroqModel),
		)
	}
	return generator.NewMockGenerator(cfg.MockDelay)
}
