package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Port)
	assert.Equal(t, time.Hour, Default().SettlementInterval)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	// GIVEN: A YAML file choosing postgres and an env override for the host
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
driver: postgres
db_host: file-host
db_name: economy
settlement_interval: 30m
allowed_origins: ["https://app.example"]
`), 0o644))
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "6543")

	// WHEN: Loading
	cfg, err := Load(path)

	// THEN: The environment wins over the file
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "env-host", cfg.DBHost)
	assert.Equal(t, 6543, cfg.DBPort)
	assert.Equal(t, 30*time.Minute, cfg.SettlementInterval)
	assert.Equal(t, []string{"https://app.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "host=env-host port=6543 user= password= dbname=economy sslmode=disable", cfg.ConnString())
}

func TestApplyEnv_ParsesDurationsAndLists(t *testing.T) {
	env := map[string]string{
		"NARRATIVE_TIMEOUT":                "5s",
		"TASK_ECONOMY_SETTLEMENT_INTERVAL": "10m",
		"TASK_ECONOMY_ALLOWED_ORIGINS":     "http://a, ,http://b",
		"TASK_ECONOMY_DRIVER":              "memory",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) { v, ok := env[k]; return v, ok })

	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.NarrativeTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SettlementInterval)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.AllowedOrigins)
	assert.Equal(t, DriverMemory, cfg.Driver)
}

func TestApplyEnv_RejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"DB_PORT":                          "abc",
		"NARRATIVE_TIMEOUT":                "soon",
		"TASK_ECONOMY_SETTLEMENT_INTERVAL": "hourly",
	} {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			err := cfg.applyEnv(func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			})
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.SettlementInterval = 0
	assert.Error(t, cfg.Validate())
}
