package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// Provide a path that definitely doesn't exist
	config, err := LoadConfig("non_existent_config.yml")
	require.NoError(t, err)

	assert.Equal(t, "open-mixtral-8x7b", config.ModelSettings.Model)
	assert.Equal(t, 0.75, config.ModelSettings.Temperature)
	assert.Equal(t, 200, config.ModelSettings.MaxTokens)
	assert.Equal(t, 25*time.Second, config.Timeout())
	assert.Equal(t, 3, config.Moderation.WarnLimit)
	assert.Equal(t, 300*time.Second, config.SilentTimeout())
	assert.Equal(t, 2, config.Shaping.MaxSentences)
	assert.Equal(t, 0.4, config.Shaping.EmojiProbability)
	assert.Equal(t, 4, config.Shaping.MaxHistory)
	assert.Equal(t, BackendMemory, config.Storage.SessionBackend)
	assert.Equal(t, BackendFile, config.Storage.BanBackend)
	assert.Equal(t, "banned_users.json", config.Storage.BanFile)
	assert.Equal(t, "zero_two_bot.log", config.Logging.File)
	assert.NoError(t, config.Validate())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
model_settings:
  temperature: 0.5
  timeout_seconds: 10
moderation:
  warn_limit: 5
shaping:
  max_words: 40
storage:
  session_backend: redis
  ban_backend: surreal
logging:
  level: debug
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.5, config.ModelSettings.Temperature)
	assert.Equal(t, 10*time.Second, config.Timeout())
	assert.Equal(t, 5, config.Moderation.WarnLimit)
	assert.Equal(t, 40, config.Shaping.MaxWords)
	assert.Equal(t, BackendRedis, config.Storage.SessionBackend)
	assert.Equal(t, BackendSurreal, config.Storage.BanBackend)
	assert.Equal(t, "debug", config.Logging.Level)

	// untouched keys keep their defaults
	assert.Equal(t, 200, config.ModelSettings.MaxTokens)
	assert.Equal(t, 300*time.Second, config.SilentTimeout())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "model_settings: [oops"},
		{"zero warn limit", "moderation:\n  warn_limit: 0\n"},
		{"zero history", "shaping:\n  max_history: 0\n"},
		{"probability out of range", "shaping:\n  emoji_probability: 1.5\n"},
		{"unknown backend", "storage:\n  ban_backend: postgres\n"},
		{"file session backend", "storage:\n  session_backend: file\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("MISTRAL_API_KEY", "k1,k2")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("REDIS_URL", "")
	t.Setenv("SURREAL_DB_HOST", "db.example.com")
	t.Setenv("SURREAL_DB_USER", "")
	t.Setenv("SURREAL_DB_PASS", "")

	s := LoadSecrets()
	assert.Equal(t, "token", s.DiscordToken)
	assert.Equal(t, "42", s.AdminID)
	assert.Equal(t, "wss://db.example.com/rpc", s.SurrealHost)

	config := Default()
	assert.Empty(t, s.Missing(config))

	config.Storage.SessionBackend = BackendRedis
	config.Storage.BanBackend = BackendSurreal
	assert.Equal(t, []string{"REDIS_URL", "SURREAL_DB_USER", "SURREAL_DB_PASS"}, s.Missing(config))
}

func TestSurrealURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000/rpc", SurrealURL("ws://localhost:8000/rpc"))
	assert.Equal(t, "wss://host/rpc", SurrealURL("host"))
	assert.Equal(t, "", SurrealURL(""))
}
