package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env    string
	DB     DB
	Server Server
	Logger Logger
	Sync   Sync
}

type DB struct {
	Driver      string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURI string `env:"DATABASE_URI"`
	// Migrations каталог с миграциями; пустое значение означает встроенные
	Migrations string `env:"MIGRATIONS_PATH"`
}

type Server struct {
	RunAddress      string        `env:"RUN_ADDRESS" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type Sync struct {
	HistoryPageSize    int `env:"SYNC_HISTORY_PAGE_SIZE" envDefault:"20"`
	MaxHistoryPageSize int `env:"SYNC_MAX_HISTORY_PAGE_SIZE" envDefault:"100"`
	MaxBatchSize       int `env:"SYNC_MAX_BATCH_SIZE" envDefault:"1000"`
}

// Load читает конфигурацию из .env (если есть) и переменных окружения
func Load() (*Config, error) {
	// .env необязателен, переменные окружения имеют приоритет
	_ = godotenv.Load(envPath)

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("storage_driver", DriverPostgres)
	v.SetDefault("run_address", ":8080")
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("sync_history_page_size", 20)
	v.SetDefault("sync_max_history_page_size", 100)
	v.SetDefault("sync_max_batch_size", 1000)

	cfg := &Config{
		Env: v.GetString("app_env"),
		DB: DB{
			Driver:      v.GetString("storage_driver"),
			DatabaseURI: v.GetString("database_uri"),
			Migrations:  v.GetString("migrations_path"),
		},
		Server: Server{
			RunAddress:      v.GetString("run_address"),
			ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		},
		Logger: Logger{LogLevel: v.GetString("log_level")},
		Sync: Sync{
			HistoryPageSize:    v.GetInt("sync_history_page_size"),
			MaxHistoryPageSize: v.GetInt("sync_max_history_page_size"),
			MaxBatchSize:       v.GetInt("sync_max_batch_size"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad как Load, но паникует при ошибке
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("%w: unknown APP_ENV %q", ErrInvalidConfig, c.Env)
	}

	switch c.DB.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.DB.DatabaseURI == "" {
			return fmt.Errorf("%w: DATABASE_URI is required for postgres storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", ErrInvalidConfig, c.DB.Driver)
	}

	if c.Server.RunAddress == "" {
		return fmt.Errorf("%w: RUN_ADDRESS is empty", ErrInvalidConfig)
	}

	for name, n := range map[string]int{
		"SYNC_HISTORY_PAGE_SIZE":     c.Sync.HistoryPageSize,
		"SYNC_MAX_HISTORY_PAGE_SIZE": c.Sync.MaxHistoryPageSize,
		"SYNC_MAX_BATCH_SIZE":        c.Sync.MaxBatchSize,
	} {
		if n <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, name, n)
		}
	}
	return nil
}
