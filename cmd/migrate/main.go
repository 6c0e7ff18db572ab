package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/motia-studio/engine/internal/storage"
	"github.com/motia-studio/engine/pkg/config"
	"github.com/motia-studio/engine/pkg/database"
	"github.com/motia-studio/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := database.OpenPostgres(context.Background(), storage.PostgresOptions(cfg))
	if err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
