package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/motia-studio/engine/pkg/config"
	"github.com/motia-studio/engine/pkg/database"
	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const postgresAdapterName = "postgres"

// CollectionSnapshot is one collection document stored as a jsonb row.
type CollectionSnapshot struct {
	Name      string         `gorm:"type:varchar(64);primaryKey" json:"name"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null" json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (CollectionSnapshot) TableName() string { return "collection_snapshots" }

// Migrate creates or updates the snapshot table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&CollectionSnapshot{})
}

// PostgresOptions maps the database settings of cfg onto connection options
// that migrate the snapshot table as soon as the pool is up.
func PostgresOptions(cfg *config.Config) database.PostgresOptions {
	return database.PostgresOptions{
		DSN:             cfg.DatabaseURL,
		AppEnv:          cfg.AppEnv,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		SlowQuery:       cfg.DBSlowQuery,
		AfterConnect: func(ctx context.Context, db *gorm.DB) error {
			if err := Migrate(db.WithContext(ctx)); err != nil {
				return fmt.Errorf("migrate snapshot table: %w", err)
			}
			return nil
		},
	}
}

// PostgresAdapter keeps one row per collection and upserts it on save.
type PostgresAdapter struct {
	db *gorm.DB
}

var _ Adapter = (*PostgresAdapter)(nil)

func NewPostgresAdapter(db *gorm.DB) *PostgresAdapter {
	return &PostgresAdapter{db: db}
}

func (a *PostgresAdapter) Name() string { return postgresAdapterName }

func (a *PostgresAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *PostgresAdapter) LoadCollection(ctx context.Context, c Collection) (Snapshot, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	var row CollectionSnapshot
	err := a.db.WithContext(ctx).First(&row, "name = ?", string(c)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", c, err)
	}
	snap, err := decodeDocument(row.Data)
	if err != nil {
		logger.L().Warn("collection row is corrupt, treating as empty",
			zap.String("collection", string(c)), zap.Error(err))
	}
	return snap, nil
}

func (a *PostgresAdapter) SaveCollection(ctx context.Context, c Collection, snap Snapshot) error {
	if err := checkCollection(c); err != nil {
		return err
	}
	if snap == nil {
		snap = Snapshot{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c, err)
	}
	row := CollectionSnapshot{Name: string(c), Data: datatypes.JSON(data), UpdatedAt: time.Now().UTC()}
	err = a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert %s: %w", c, err)
	}
	return nil
}
