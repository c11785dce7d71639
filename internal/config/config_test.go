package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "/v1", cfg.Server.ProtectedPrefix)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, FailClosed, cfg.RateLimit.FailureMode)
	assert.Equal(t, 2*time.Second, cfg.Redis.OpTimeout)
	assert.Equal(t, 1024, cfg.Usage.QueueSize)
	assert.Equal(t, time.Second, cfg.Usage.CoalesceInterval)
	assert.Equal(t, "dev-admin-token", cfg.Admin.Token)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RATE_LIMIT_FAILURE_MODE", "OPEN")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("USAGE_WORKERS", "8")
	t.Setenv("REDIS_OP_TIMEOUT", "150ms")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, FailOpen, cfg.RateLimit.FailureMode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 8, cfg.Usage.Workers)
	assert.Equal(t, 150*time.Millisecond, cfg.Redis.OpTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7000\"\nprotected_prefix: /api\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "/api", cfg.Server.ProtectedPrefix)

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("PORT", "7001")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "7001", cfg.Server.Port)
	})
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown failure mode", env: map[string]string{"RATE_LIMIT_FAILURE_MODE": "sometimes"}},
		{name: "relative prefix", env: map[string]string{"PROTECTED_PREFIX": "v1"}},
		{name: "root prefix", env: map[string]string{"PROTECTED_PREFIX": "/"}},
		{name: "slashes only prefix", env: map[string]string{"PROTECTED_PREFIX": "//"}},
		{name: "zero workers", env: map[string]string{"USAGE_WORKERS": "0"}},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}},
		{name: "default admin token in production", env: map[string]string{"ENVIRONMENT": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
