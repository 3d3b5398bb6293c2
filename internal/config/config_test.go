package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aicarousel/gateway/internal/config"
)

func TestLoad(t *testing.T) {
	t.Run("should load config with defaults", func(t *testing.T) {
		os.Clearenv()

		cfg := config.Load()

		require.NotNil(t, cfg)
		require.Equal(t, 7123, cfg.Server.Port)
		require.Equal(t, 30, cfg.Server.ReadTimeout)
		require.Equal(t, 30, cfg.Server.WriteTimeout)
		require.Equal(t, 30*time.Second, cfg.Server.FirstChunkTimeout())
		require.Equal(t, "./models.json", cfg.Store.ModelsConfigPath)
		require.Equal(t, "./gateway.db", cfg.Store.CredentialsDBPath)
		require.False(t, cfg.Cache.Enabled())
	})

	t.Run("should load config from environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("SERVER_READ_TIMEOUT", "60")
		t.Setenv("SERVER_WRITE_TIMEOUT", "60")
		t.Setenv("FIRST_CHUNK_TIMEOUT_SECONDS", "15")
		t.Setenv("MODELS_CONFIG_PATH", "/tmp/models.json")
		t.Setenv("CREDENTIALS_DB_PATH", "/tmp/gateway.db")
		t.Setenv("REDIS_URL", "redis://localhost:6379")
		t.Setenv("OPENAI_API_KEY", "sk-test-key")

		cfg := config.Load()

		require.NotNil(t, cfg)
		require.Equal(t, 9000, cfg.Server.Port)
		require.Equal(t, 60, cfg.Server.ReadTimeout)
		require.Equal(t, 60, cfg.Server.WriteTimeout)
		require.Equal(t, 15*time.Second, cfg.Server.FirstChunkTimeout())
		require.Equal(t, "/tmp/models.json", cfg.Store.ModelsConfigPath)
		require.Equal(t, "/tmp/gateway.db", cfg.Store.CredentialsDBPath)
		require.True(t, cfg.Cache.Enabled())
	})
}

func TestCORSConfig_Defaults(t *testing.T) {
	os.Clearenv()

	cfg := config.Load()

	require.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.CORS.AllowedMethods)
	require.True(t, cfg.CORS.AllowCredentials)
}
