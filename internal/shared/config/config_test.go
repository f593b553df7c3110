package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "settlement-service")
	t.Setenv("ENV", "local")

	cfg := Load()
	assert.Equal(t, "8084", cfg.HTTPPort)
	assert.Equal(t, "9100", cfg.MetricsPort)
	assert.Equal(t, time.Minute, cfg.SettlementInterval)
	assert.Equal(t, 4, cfg.SettlementWorkers)
	assert.Equal(t, 5000, cfg.MaxSlipsPerPass)
	assert.Equal(t, "match_concluded", cfg.TopicMatchConcluded)
	assert.Equal(t, "slip_settled", cfg.TopicSlipSettled)
	assert.True(t, cfg.AutoMigrate)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_WorkerPortsAndOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "settlement-worker")
	t.Setenv("ENV", "prod")
	t.Setenv("SETTLEMENT_TOKEN", "x")
	t.Setenv("SETTLEMENT_INTERVAL", "0")
	t.Setenv("SETTLEMENT_WORKERS", "16")
	t.Setenv("SETTLEMENT_MAX_SLIPS_PER_PASS", "not-a-number")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg := Load()
	assert.Equal(t, "", cfg.HTTPPort)
	assert.Equal(t, "9101", cfg.MetricsPort)
	assert.Equal(t, time.Duration(0), cfg.SettlementInterval)
	assert.Equal(t, 16, cfg.SettlementWorkers)
	assert.Equal(t, 5000, cfg.MaxSlipsPerPass)
	assert.False(t, cfg.AutoMigrate)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := Config{Env: "prod", SettlementWorkers: 0, MaxSlipsPerPass: -1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SETTLEMENT_TOKEN")
	assert.Contains(t, err.Error(), "SETTLEMENT_WORKERS")
	assert.Contains(t, err.Error(), "SETTLEMENT_MAX_SLIPS_PER_PASS")

	cfg = Config{Env: "local", SettlementWorkers: 1}
	assert.NoError(t, cfg.Validate())
}

func TestValidate_WSToken(t *testing.T) {
	cfg := Config{Env: "prod", ServiceName: "settlement-service", SettlementToken: "trigger", SettlementWorkers: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WS_TOKEN")

	cfg.WSToken = "trigger"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")

	cfg.WSToken = "listen"
	assert.NoError(t, cfg.Validate())

	// worker não expõe /ws
	cfg = Config{Env: "prod", ServiceName: "settlement-worker", SettlementToken: "trigger", SettlementWorkers: 1}
	assert.NoError(t, cfg.Validate())
}
