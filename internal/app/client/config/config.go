package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "prod"
	defaultConfigDir     = ".pxo"
	defaultBatchSize     = 500
	defaultTimeout       = 30 * time.Second
	dataFile             = "outbox.db"
	configFile           = "config.yaml"
)

var ErrInvalidConfig = errors.New("invalid client config")

type Config struct {
	Env           string        `mapstructure:"app_env"`
	ServerAddress string        `mapstructure:"server_address"`
	LogLevel      string        `mapstructure:"log_level"`
	ConfigDir     string        `mapstructure:"config_dir"`
	DataPath      string        `mapstructure:"data_path"`
	DeviceID      string        `mapstructure:"device_id"`
	Token         string        `mapstructure:"token"`
	EnableTLS     bool          `mapstructure:"enable_tls"`
	BatchSize     int           `mapstructure:"sync_batch_size"`
	Timeout       time.Duration `mapstructure:"request_timeout"`
}

// Load читает .env, необязательный config.yaml из каталога конфигурации и
// переменные окружения. Переменные окружения имеют приоритет.
func Load(v *viper.Viper) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetDefault("app_env", defaultEnv)
	v.SetDefault("server_address", defaultServerAddress)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("config_dir", defaultConfigDir)
	v.SetDefault("enable_tls", false)
	v.SetDefault("sync_batch_size", defaultBatchSize)
	v.SetDefault("request_timeout", defaultTimeout)

	configDir := v.GetString("config_dir")
	if configDir == defaultConfigDir {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		configDir = filepath.Join(homeDir, configDir)
	}

	if v.ConfigFileUsed() == "" {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Env:           v.GetString("app_env"),
		ServerAddress: v.GetString("server_address"),
		LogLevel:      v.GetString("log_level"),
		ConfigDir:     configDir,
		DataPath:      filepath.Join(configDir, dataFile),
		DeviceID:      v.GetString("device_id"),
		Token:         v.GetString("token"),
		EnableTLS:     v.GetBool("enable_tls"),
		BatchSize:     v.GetInt("sync_batch_size"),
		Timeout:       v.GetDuration("request_timeout"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save записывает значения в config.yaml каталога dir, сохраняя остальные ключи
func Save(dir string, values map[string]any) error {
	path := filepath.Join(dir, configFile)

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read config file: %w", err)
	}

	for key, value := range values {
		v.Set(key, value)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return os.Chmod(path, 0o600)
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load(viper.New())
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("%w: server_address не может быть пустым", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: sync_batch_size должен быть положительным", ErrInvalidConfig)
	}
	return nil
}

// BaseURL адрес сервера со схемой
func (c *Config) BaseURL() string {
	if c.EnableTLS {
		return "https://" + c.ServerAddress
	}
	return "http://" + c.ServerAddress
}
