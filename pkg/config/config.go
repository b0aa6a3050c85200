package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendMemory  = "memory"
	BackendFile    = "file"
	BackendRedis   = "redis"
	BackendSurreal = "surreal"
)

type Config struct {
	ModelSettings struct {
		Model            string  `yaml:"model"`
		BaseURL          string  `yaml:"base_url"`
		Temperature      float64 `yaml:"temperature"`
		MaxTokens        int     `yaml:"max_tokens"`
		FrequencyPenalty float64 `yaml:"frequency_penalty"`
		PresencePenalty  float64 `yaml:"presence_penalty"`
		TimeoutSeconds   float64 `yaml:"timeout_seconds"`
	} `yaml:"model_settings"`
	Moderation struct {
		WarnLimit            int     `yaml:"warn_limit"`
		SilentTimeoutSeconds float64 `yaml:"silent_timeout_seconds"`
	} `yaml:"moderation"`
	Shaping struct {
		MaxSentences     int     `yaml:"max_sentences"`
		EmojiProbability float64 `yaml:"emoji_probability"`
		MinWords         int     `yaml:"min_words"`
		MaxWords         int     `yaml:"max_words"`
		MaxHistory       int     `yaml:"max_history"`
		ClassifierCache  int     `yaml:"classifier_cache"`
	} `yaml:"shaping"`
	Storage struct {
		SessionBackend   string `yaml:"session_backend"`
		BanBackend       string `yaml:"ban_backend"`
		BanFile          string `yaml:"ban_file"`
		RedisPrefix      string `yaml:"redis_prefix"`
		SurrealNamespace string `yaml:"surreal_namespace"`
		SurrealDatabase  string `yaml:"surreal_database"`
		SurrealTable     string `yaml:"surreal_table"`
	} `yaml:"storage"`
	Logging struct {
		Level       string `yaml:"level"`
		Environment string `yaml:"environment"`
		File        string `yaml:"file"`
	} `yaml:"logging"`
}

// Default mirrors the values the bot has always shipped with.
func Default() *Config {
	config := &Config{}
	config.ModelSettings.Model = "open-mixtral-8x7b"
	config.ModelSettings.BaseURL = "https://api.mistral.ai/v1"
	config.ModelSettings.Temperature = 0.75
	config.ModelSettings.MaxTokens = 200
	config.ModelSettings.FrequencyPenalty = 0.6
	config.ModelSettings.PresencePenalty = 0.4
	config.ModelSettings.TimeoutSeconds = 25
	config.Moderation.WarnLimit = 3
	config.Moderation.SilentTimeoutSeconds = 300
	config.Shaping.MaxSentences = 2
	config.Shaping.EmojiProbability = 0.4
	config.Shaping.MinWords = 5
	config.Shaping.MaxWords = 25
	config.Shaping.MaxHistory = 4
	config.Shaping.ClassifierCache = 1000
	config.Storage.SessionBackend = BackendMemory
	config.Storage.BanBackend = BackendFile
	config.Storage.BanFile = "banned_users.json"
	config.Storage.RedisPrefix = "zerotwo"
	config.Storage.SurrealNamespace = "zerotwo"
	config.Storage.SurrealDatabase = "bot"
	config.Storage.SurrealTable = "banned_users"
	config.Logging.Level = "info"
	config.Logging.Environment = "production"
	config.Logging.File = "zero_two_bot.log"
	return config
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Moderation.WarnLimit < 1:
		return fmt.Errorf("moderation.warn_limit must be at least 1")
	case c.Shaping.MaxWords < 1:
		return fmt.Errorf("shaping.max_words must be at least 1")
	case c.Shaping.MaxSentences < 1:
		return fmt.Errorf("shaping.max_sentences must be at least 1")
	case c.Shaping.MaxHistory < 1:
		return fmt.Errorf("shaping.max_history must be at least 1")
	case c.Shaping.EmojiProbability < 0 || c.Shaping.EmojiProbability > 1:
		return fmt.Errorf("shaping.emoji_probability must be within [0, 1]")
	case c.ModelSettings.TimeoutSeconds <= 0:
		return fmt.Errorf("model_settings.timeout_seconds must be positive")
	}

	switch c.Storage.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown storage.session_backend %q", c.Storage.SessionBackend)
	}
	switch c.Storage.BanBackend {
	case BackendFile, BackendRedis, BackendSurreal:
	default:
		return fmt.Errorf("unknown storage.ban_backend %q", c.Storage.BanBackend)
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.ModelSettings.TimeoutSeconds * float64(time.Second))
}

func (c *Config) SilentTimeout() time.Duration {
	return time.Duration(c.Moderation.SilentTimeoutSeconds * float64(time.Second))
}

// Secrets come from the environment (optionally a .env file), never from
// config.yml.
type Secrets struct {
	DiscordToken   string
	DiscordGuildID string
	MistralAPIKey  string
	AdminID        string
	RedisURL       string
	SurrealHost    string
	SurrealUser    string
	SurrealPass    string
}

func LoadSecrets() Secrets {
	return Secrets{
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),
		MistralAPIKey:  os.Getenv("MISTRAL_API_KEY"),
		AdminID:        os.Getenv("ADMIN_ID"),
		RedisURL:       os.Getenv("REDIS_URL"),
		SurrealHost:    SurrealURL(os.Getenv("SURREAL_DB_HOST")),
		SurrealUser:    os.Getenv("SURREAL_DB_USER"),
		SurrealPass:    os.Getenv("SURREAL_DB_PASS"),
	}
}

// SurrealURL turns a bare host into a websocket RPC endpoint.
func SurrealURL(host string) string {
	if host == "" || strings.HasPrefix(host, "ws://") || strings.HasPrefix(host, "wss://") {
		return host
	}
	return "wss://" + host + "/rpc"
}

// Missing lists the environment variables the selected backends need but
// do not have.
func (s Secrets) Missing(c *Config) []string {
	var missing []string
	if s.DiscordToken == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if s.MistralAPIKey == "" {
		missing = append(missing, "MISTRAL_API_KEY")
	}
	if (c.Storage.SessionBackend == BackendRedis || c.Storage.BanBackend == BackendRedis) && s.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}
	if c.Storage.BanBackend == BackendSurreal {
		if s.SurrealHost == "" {
			missing = append(missing, "SURREAL_DB_HOST")
		}
		if s.SurrealUser == "" {
			missing = append(missing, "SURREAL_DB_USER")
		}
		if s.SurrealPass == "" {
			missing = append(missing, "SURREAL_DB_PASS")
		}
	}
	return missing
}
