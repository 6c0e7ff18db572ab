package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	// Storage
	StorageDriver     string        `mapstructure:"STORAGE_DRIVER" validate:"required,oneof=auto file memory redis postgres"`
	DataDir           string        `mapstructure:"DATA_DIR" validate:"required"`
	Vercel            bool          `mapstructure:"VERCEL"`
	Serverless        bool          `mapstructure:"SERVERLESS"`
	ReloadInterval    time.Duration `mapstructure:"RELOAD_INTERVAL" validate:"gte=0"`
	PersistencePolicy string        `mapstructure:"PERSISTENCE_POLICY" validate:"required,oneof=lenient strict"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL" validate:"omitempty,url|uri"`

	// Postgres pool
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS" validate:"gte=1,lte=1000"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS" validate:"gte=0,ltefield=DBMaxOpenConns"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME" validate:"gte=0"`
	DBSlowQuery       time.Duration `mapstructure:"DB_SLOW_QUERY" validate:"gte=0"`

	// Redis backs both the redis storage driver and the asynq runner.
	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0,lte=15"`

	// Deployments
	DeployRunner     string        `mapstructure:"DEPLOY_RUNNER" validate:"required,oneof=inline asynq"`
	DeployDelay      time.Duration `mapstructure:"DEPLOY_DELAY" validate:"gte=0"`
	DeployDomain     string        `mapstructure:"DEPLOY_DOMAIN" validate:"required,hostname"`
	AsynqConcurrency int           `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	// Code generation
	Generator  string `mapstructure:"GENERATOR" validate:"required,oneof=mock groq"`
	GroqAPIKey string `mapstructure:"GROQ_API_KEY"`
	GroqAPIURL string `mapstructure:"GROQ_API_URL" validate:"required,url"`
	GroqModel  string `mapstructure:"GROQ_MODEL" validate:"required"`

	// MockDelay is how long the mock generator pretends to think.
	MockDelay time.Duration `mapstructure:"MOCK_DELAY" validate:"gte=0"`

	// HTTP
	JWTSecret      string  `mapstructure:"JWT_SECRET"`
	DefaultUserID  string  `mapstructure:"DEFAULT_USER_ID"`
	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var durationKeys = []string{"SHUTDOWN_TIMEOUT", "RELOAD_INTERVAL", "DEPLOY_DELAY", "MOCK_DELAY", "DB_CONN_MAX_LIFETIME", "DB_SLOW_QUERY"}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORAGE_DRIVER", "auto")
	v.SetDefault("DATA_DIR", ".data")
	v.SetDefault("VERCEL", false)
	v.SetDefault("SERVERLESS", false)
	v.SetDefault("RELOAD_INTERVAL", "1s")
	v.SetDefault("PERSISTENCE_POLICY", "lenient")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_SLOW_QUERY", "200ms")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DEPLOY_RUNNER", "inline")
	v.SetDefault("DEPLOY_DELAY", "2s")
	v.SetDefault("DEPLOY_DOMAIN", "motia.app")
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("GENERATOR", "mock")
	v.SetDefault("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("GROQ_MODEL", "llama-3.1-8b-instant")
	v.SetDefault("MOCK_DELAY", "1s")
	v.SetDefault("DEFAULT_USER_ID", "demo-user")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("GOMAXPROCS", 0)

	// Optional config file
	_ = v.ReadInConfig()

	// Bind env without prefix for convenience
	keys := []string{
		"APP_ENV",
		"HTTP_ADDR",
		"SHUTDOWN_TIMEOUT",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"STORAGE_DRIVER",
		"DATA_DIR",
		"VERCEL",
		"SERVERLESS",
		"RELOAD_INTERVAL",
		"PERSISTENCE_POLICY",
		"DATABASE_URL",
		"DB_MAX_OPEN_CONNS",
		"DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME",
		"DB_SLOW_QUERY",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"DEPLOY_RUNNER",
		"DEPLOY_DELAY",
		"DEPLOY_DOMAIN",
		"ASYNQ_CONCURRENCY",
		"GENERATOR",
		"GROQ_API_KEY",
		"GROQ_API_URL",
		"GROQ_MODEL",
		"MOCK_DELAY",
		"JWT_SECRET",
		"DEFAULT_USER_ID",
		"RATE_LIMIT_RPS",
		"RATE_LIMIT_BURST",
		"GOMAXPROCS",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Parse duration types that may come as string
	for _, key := range durationKeys {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		switch key {
		case "SHUTDOWN_TIMEOUT":
			c.ShutdownTimeout = d
		case "RELOAD_INTERVAL":
			c.ReloadInterval = d
		case "DEPLOY_DELAY":
			c.DeployDelay = d
		case "MOCK_DELAY":
			c.MockDelay = d
		case "DB_CONN_MAX_LIFETIME":
			c.DBConnMaxLifetime = d
		case "DB_SLOW_QUERY":
			c.DBSlowQuery = d
		}
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if (c.DeployRunner == "asynq" || c.StorageDriver == "redis") && c.RedisAddr == "" {
		return nil, fmt.Errorf("invalid configuration: REDIS_ADDR is required for %s", c.redisConsumer())
	}
	if c.StorageDriver == "postgres" && c.DatabaseURL == "" {
		return nil, fmt.Errorf("invalid configuration: DATABASE_URL is required for STORAGE_DRIVER=postgres")
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

func (c *Config) redisConsumer() string {
	if c.DeployRunner == "asynq" {
		return "DEPLOY_RUNNER=asynq"
	}
	return "STORAGE_DRIVER=redis"
}

// IsServerless reports whether each invocation may run in a fresh, isolated
// process, in which case a local data directory cannot be relied upon.
func (c *Config) IsServerless() bool {
	return c.Vercel || c.Serverless || c.AppEnv == "production"
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
