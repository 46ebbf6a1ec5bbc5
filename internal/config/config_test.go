package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"MAILFLOW_JWT_SECRET",
		"MAILFLOW_SERVER_HOST",
		"MAILFLOW_SERVER_PORT",
		"MAILFLOW_INBOX_PAGE_SIZE",
		"MAILFLOW_INBOX_LOGIN_LENGTH",
		"MAILFLOW_BROKER_URL",
		"MAILFLOW_BROKER_EXCHANGE",
		"MAILFLOW_BROKER_NAMESPACE",
		"MAILFLOW_CACHE_TTL",
		"MAILFLOW_LOG_LEVEL",
		"MAILFLOW_LOG_DEVELOPMENT",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	t.Run("加载默认配置成功", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		// 设置必需的JWT密钥
		os.Setenv("MAILFLOW_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 50, cfg.Inbox.PageSize)
		assert.Equal(t, 16, cfg.Inbox.LoginLength)
		assert.Equal(t, 16, cfg.Inbox.PasswordLength)
		assert.Equal(t, "mail", cfg.Broker.Exchange)
		assert.Equal(t, "newmail", cfg.Broker.Namespace)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
	})

	t.Run("环境变量覆盖默认值", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		os.Setenv("MAILFLOW_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")
		os.Setenv("MAILFLOW_SERVER_PORT", "9090")
		os.Setenv("MAILFLOW_INBOX_PAGE_SIZE", "25")
		os.Setenv("MAILFLOW_BROKER_EXCHANGE", "mailtest")
		os.Setenv("MAILFLOW_CACHE_TTL", "30m")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 25, cfg.Inbox.PageSize)
		assert.Equal(t, "mailtest", cfg.Broker.Exchange)
		assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	})

	t.Run("缺少JWT密钥时报错", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("JWT密钥过短时报错", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		os.Setenv("MAILFLOW_JWT_SECRET", "too-short")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("非法缓存TTL时报错", func(t *testing.T) {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}

		os.Setenv("MAILFLOW_JWT_SECRET", "test-secret-key-for-development-32-chars-long-at-least")
		os.Setenv("MAILFLOW_CACHE_TTL", "not-a-duration")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}
