package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_Chat(t *testing.T) {
	t.Run("CHAT_SERVICE_API sets base url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHAT_SERVICE_API", "http://chat-service:8000")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://chat-service:8000", cfg.Chat.BaseURL)
	})

	t.Run("Precedence: SHOPCHAT_API_URL overrides CHAT_SERVICE_API", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CHAT_SERVICE_API", "http://legacy:8000")
		t.Setenv("SHOPCHAT_API_URL", "http://preferred:8000")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://preferred:8000", cfg.Chat.BaseURL)
	})

	t.Run("customer id", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SHOPCHAT_CUSTOMER_ID", "CUST-42")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "CUST-42", cfg.Chat.CustomerID)
	})
}

func TestEnvOverrides_StorageAndLogging(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPCHAT_STORAGE", "redis")
	t.Setenv("SHOPCHAT_REDIS_ADDR", "localhost:6379")
	t.Setenv("SHOPCHAT_LOG_LEVEL", "debug")
	t.Setenv("SHOPCHAT_DEBUG", "true")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.DebugMode)
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverrides_IgnoresBadBool(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHOPCHAT_DEBUG", "maybe")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.False(t, cfg.Logging.DebugMode)
}
