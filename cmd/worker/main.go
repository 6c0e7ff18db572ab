package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/motia-studio/engine/internal/provisioner"
	"github.com/motia-studio/engine/internal/queue/tasks"
	"github.com/motia-studio/engine/internal/services"
	"github.com/motia-studio/engine/internal/storage"
	"github.com/motia-studio/engine/internal/store"
	"github.com/motia-studio/engine/pkg/config"
	"github.com/motia-studio/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.RedisAddr == "" {
		log.Fatal("REDIS_ADDR is required for the worker")
	}
	// File and memory adapters are private to this process.
	driver := storage.ResolveDriver(cfg)
	if driver != storage.DriverRedis && driver != storage.DriverPostgres {
		log.Warn("worker storage is not shared with the API", zap.String("driver", driver))
	}

	ctx := context.Background()
	adapter, err := storage.Select(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open storage", zap.Error(err))
	}
	defer adapter.Close()

	st := store.New(adapter,
		store.WithReloadInterval(cfg.ReloadInterval),
		store.WithPolicy(store.ParsePolicy(cfg.PersistencePolicy)),
	)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
		},
	)

	prov := provisioner.NewSimulatedProvisioner(cfg.DeployDelay, cfg.DeployDomain)
	// deployment service (worker doesn't schedule jobs)
	deploySvc := services.NewDeploymentService(st, prov, nil)

	handler := tasks.NewProvisionTaskHandler(deploySvc)
	mux := asynq.NewServeMux()
	mux.HandleFunc(services.TaskTypeProvision, handler.HandleProvision)

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency),
			zap.String("storage", adapter.Name()))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Allow in-flight tasks to finish gracefully
	srv.Shutdown()
}
