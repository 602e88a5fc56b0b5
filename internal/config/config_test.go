package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInit_DefaultsWithoutEnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())

	require.NoError(t, Init())

	server := LoadServerConfig()
	assert.Equal(t, "8080", server.Port)
	assert.Equal(t, 30*time.Second, server.RequestTimeout)
	assert.Equal(t, int64(1_048_576), server.MaxBodyBytes)
	assert.Equal(t, 24*time.Hour, server.IdempotencyTTL)
	assert.True(t, viper.GetBool("database.auto_migrate"))
	assert.False(t, LoadComplianceConfig().Enabled)
}

func TestInit_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("COMPLIANCE_BASE_URL", "http://compliance.local/")
	t.Setenv("LOG_LEVEL", "debug")

	require.NoError(t, Init())

	assert.Equal(t, "9090", LoadServerConfig().Port)
	assert.Equal(t, "http://compliance.local", LoadComplianceConfig().BaseURL)
	assert.Equal(t, "debug", LoadLogConfig().Level)
}

func TestInit_EnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_EXPIRY_HOURS=3\n"), 0o600))

	require.NoError(t, Init())
	assert.Equal(t, 3, viper.GetInt("jwt_expiry_hours"))
}

func TestInitializeLogger(t *testing.T) {
	previous := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(previous) })

	logger, sync := InitializeLogger(&LogConfig{Level: "warn"})
	defer sync()

	assert.Same(t, logger, zap.L())
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, sync = InitializeLogger(&LogConfig{Level: "nonsense", Development: true})
	defer sync()
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
