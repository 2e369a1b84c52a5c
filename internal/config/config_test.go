package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "kernel", cfg.Oracle.Mode)
	assert.Equal(t, "python3", cfg.Oracle.Command)
	assert.Equal(t, 30, cfg.Oracle.TimeoutSecs)
	assert.Equal(t, 1, cfg.Oracle.RetryAttempts)
	assert.Equal(t, 1000.0, cfg.Rates.Probe)
	assert.Equal(t, 4, cfg.Rates.Concurrency)
	assert.Equal(t, 86912.0, cfg.Rates.OASThreshold)
	assert.False(t, cfg.Rates.DisableOASOverlay)
	assert.Equal(t, 0.18, cfg.Scenario.ContributionRate)
	assert.Equal(t, 31560.0, cfg.Scenario.AnnualContributionLimit)
	assert.Empty(t, cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TAXPLAN_ORACLE_MODE", "subprocess")
	t.Setenv("TAXPLAN_SERVER_PORT", "9191")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "subprocess", cfg.Oracle.Mode)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestOracleConfig_Timeout(t *testing.T) {
	c := OracleConfig{TimeoutSecs: 45}
	assert.Equal(t, "45s", c.Timeout().String())
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouty", Format: "json"})
	require.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
}
