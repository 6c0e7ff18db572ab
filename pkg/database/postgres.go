package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/motia-studio/engine/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresOptions configures the snapshot database connection. Zero values
// take the defaults below.
type PostgresOptions struct {
	DSN    string
	AppEnv string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	// SlowQuery is the duration above which a query is logged at warn.
	SlowQuery time.Duration

	// AfterConnect runs once the pool answers a ping, before the handle is
	// returned. Schema migration hooks in here.
	AfterConnect func(ctx context.Context, db *gorm.DB) error
}

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnectRetries  = 5
	defaultSlowQuery       = 200 * time.Millisecond
)

func (o PostgresOptions) withDefaults() PostgresOptions {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = defaultMaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = defaultMaxIdleConns
	}
	if o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if o.ConnectRetries <= 0 {
		o.ConnectRetries = defaultConnectRetries
	}
	if o.SlowQuery <= 0 {
		o.SlowQuery = defaultSlowQuery
	}
	return o
}

// gormLevel keeps query logging on outside production-like environments.
func gormLevel(appEnv string) gormlogger.LogLevel {
	if appEnv == "development" || appEnv == "test" {
		return gormlogger.Warn
	}
	return gormlogger.Silent
}

// OpenPostgres opens a Gorm PostgreSQL connection with retry, applies the
// pool settings from opts and runs opts.AfterConnect.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	opts = opts.withDefaults()

	gl := gormZap{zap: logger.Component("gorm"), level: gormLevel(opts.AppEnv), slow: opts.SlowQuery}
	b := backoff{
		maxRetries: opts.ConnectRetries,
		delay:      500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}

	var db *gorm.DB
	var err error
	for attempt := 0; ; attempt++ {
		db, err = gorm.Open(postgres.Open(opts.DSN), &gorm.Config{Logger: gl})
		if err == nil {
			break
		}
		if attempt >= b.maxRetries {
			return nil, fmt.Errorf("open postgres failed after retries: %w", err)
		}
		logger.L().Warn("postgres connect retry", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("open postgres canceled: %w", ctx.Err())
		case <-time.After(b.nextDelay(attempt)):
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres handle: %w", err)
	}

	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctxPing); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if opts.AfterConnect != nil {
		if err := opts.AfterConnect(ctx, db); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return db, nil
}

// gormZap routes gorm logging through zap.
type gormZap struct {
	zap   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func (l gormZap) LogMode(level gormlogger.LogLevel) gormlogger.Interface { l.level = level; return l }
func (l gormZap) Info(ctx context.Context, s string, args ...any) {
	if l.level >= gormlogger.Info {
		l.zap.Sugar().Infof(s, args...)
	}
}
func (l gormZap) Warn(ctx context.Context, s string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.zap.Sugar().Warnf(s, args...)
	}
}
func (l gormZap) Error(ctx context.Context, s string, args ...any) {
	if l.level >= gormlogger.Error {
		l.zap.Sugar().Errorf(s, args...)
	}
}

// Trace logs failed queries at error, slow ones at warn and the rest at debug.
func (l gormZap) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	sql, rows := fc()
	dur := time.Since(begin)
	fields := []zap.Field{zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql)}
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.zap.Error("gorm query error", append(fields, zap.Error(err))...)
	case l.slow > 0 && dur > l.slow:
		l.zap.Warn("gorm slow query", append(fields, zap.Duration("threshold", l.slow))...)
	default:
		l.zap.Debug("gorm query", fields...)
	}
}

type backoff struct {
	maxRetries int
	delay      time.Duration
	maxDelay   time.Duration
}

func (b backoff) nextDelay(attempt int) time.Duration {
	d := b.delay << attempt
	if d <= 0 || d > b.maxDelay {
		return b.maxDelay
	}
	return d
}
