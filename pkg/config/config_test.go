package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "uspeertutoring@hw.com", cfg.Orchestrator.AdminEmail)
	assert.Equal(t, "Head", cfg.Orchestrator.HeadRole)
	assert.Equal(t, " Lead", cfg.Orchestrator.LeadRoleSuffix)
	assert.Equal(t, 5*time.Minute, cfg.Orchestrator.ConfirmDelay)
	assert.Equal(t, 1, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, "0 1 * * *", cfg.Sweep.Cron)
	assert.True(t, cfg.Sweep.EmitCompletion)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "SQLITE")
	t.Setenv("ADMIN_EMAIL", "office@example.org")
	t.Setenv("SESSION_CONFIRM_DELAY", "not-a-duration")
	t.Setenv("SWEEP_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "office@example.org", cfg.Orchestrator.AdminEmail)
	assert.Equal(t, 5*time.Minute, cfg.Orchestrator.ConfirmDelay)
	assert.Equal(t, "UTC", cfg.Sweep.Timezone)
}
