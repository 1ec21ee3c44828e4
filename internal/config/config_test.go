package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 1_000_000.0, cfg.Rank.Scale, 0.001)
	assert.InDelta(t, 5.0, cfg.Relate.DoorTolerance, 0.001)
	assert.Equal(t, 4, cfg.Addressing.Workers)
	assert.Equal(t, "camp_id", cfg.Layers.CampIDField)
	assert.Equal(t, "line_id", cfg.Layers.LineIDField)
	assert.Equal(t, "campaddr.db", cfg.Store.Path)
	assert.Equal(t, 8694, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
rank:
  scale: 10000000
relate:
  door_tolerance: 2.5
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 10_000_000.0, cfg.Rank.Scale, 0.001)
	assert.InDelta(t, 2.5, cfg.Relate.DoorTolerance, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 4, cfg.Addressing.Workers)
	assert.Equal(t, "campaddr.db", cfg.Store.Path)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
store:
  path: from-file.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CAMPADDR_STORE_PATH", "from-env.db")
	t.Setenv("CAMPADDR_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "from-env.db", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("CAMPADDR_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Rank.Scale = 1_000_000
	cfg.Relate.DoorTolerance = 5.0
	cfg.Addressing.Workers = 4
	cfg.Store.Path = "campaddr.db"
	cfg.Server.Port = 8694
	return cfg
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("address"))
}

func TestValidateAddress_BadScale(t *testing.T) {
	cfg := validDefaults()
	cfg.Rank.Scale = 0

	err := cfg.Validate("address")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rank.scale must be > 0")
}

func TestValidateAddress_NegativeTolerance(t *testing.T) {
	cfg := validDefaults()
	cfg.Relate.DoorTolerance = -1

	err := cfg.Validate("address")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "relate.door_tolerance must be >= 0")
}

func TestValidateWorkerBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Addressing.Workers = 0
	err := cfg.Validate("address")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "addressing.workers must be between 1 and 64")

	cfg.Addressing.Workers = 65
	err = cfg.Validate("address")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "addressing.workers must be between 1 and 64")

	cfg.Addressing.Workers = 64
	assert.NoError(t, cfg.Validate("address"))
}

func TestValidateServe_ValidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 9090

	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateMissingStorePath(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Path = ""

	err := cfg.Validate("runs")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.path is required")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
