package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("SERVER_ADDRESS", "sync.example.com")
	t.Setenv("DEVICE_ID", "d1")
	t.Setenv("TOKEN", "secret")
	t.Setenv("ENABLE_TLS", "true")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, filepath.Join(dir, "outbox.db"), cfg.DataPath)
	assert.Equal(t, "d1", cfg.DeviceID)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "https://sync.example.com", cfg.BaseURL())
	assert.Equal(t, defaultBatchSize, cfg.BatchSize)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("SERVER_ADDRESS", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("server_address: 10.0.0.5:8080\ndevice_id: from-file\n"), 0o600))

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DeviceID)
	assert.Equal(t, "http://10.0.0.5:8080", cfg.BaseURL())
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("SYNC_BATCH_SIZE", "0")

	_, err := Load(viper.New())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSave_KeepsOtherKeys(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("TOKEN", "")
	t.Setenv("DEVICE_ID", "")

	require.NoError(t, Save(dir, map[string]any{"device_id": "d1"}))
	require.NoError(t, Save(dir, map[string]any{"token": "t1"}))

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "d1", cfg.DeviceID)
	assert.Equal(t, "t1", cfg.Token)

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
