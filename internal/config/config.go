// Package config loads process configuration from a .env file and the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the environment of a Canopy process. Command-line flags override it.
type Config struct {
	LLMProvider string `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMModel    string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMAPIKey   string `envconfig:"LLM_API_KEY"`
	LLMBaseURL  string `envconfig:"LLM_BASE_URL"`

	Addr          string        `envconfig:"CANOPY_ADDR" default:":8000"`
	Graph         string        `envconfig:"CANOPY_GRAPH"`
	Watch         bool          `envconfig:"CANOPY_WATCH"`
	Workers       int           `envconfig:"CANOPY_WORKERS" default:"8"`
	EventBuffer   int           `envconfig:"CANOPY_EVENT_BUFFER" default:"64"`
	MaxToolRounds int           `envconfig:"CANOPY_MAX_TOOL_ROUNDS" default:"10"`
	ToolTimeout   time.Duration `envconfig:"CANOPY_CAPABILITY_TIMEOUT" default:"30s"`

	HistoryBackend string        `envconfig:"CANOPY_HISTORY_BACKEND" default:"file"`
	HistoryDir     string        `envconfig:"CANOPY_HISTORY_DIR" default:".canopy/sessions"`
	RedisAddr      string        `envconfig:"CANOPY_REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string        `envconfig:"CANOPY_REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"CANOPY_REDIS_DB"`
	RedisPrefix    string        `envconfig:"CANOPY_REDIS_PREFIX" default:"canopy:session:"`
	SessionTTL     time.Duration `envconfig:"CANOPY_SESSION_TTL"`

	EncryptionKey   string   `envconfig:"CANOPY_ENCRYPTION_KEY"`
	FallbackKeys    []string `envconfig:"CANOPY_ENCRYPTION_FALLBACK_KEYS"`
	PIIPatterns     []string `envconfig:"CANOPY_PII_PATTERNS"`
	DistributedLock bool     `envconfig:"CANOPY_DISTRIBUTED_LOCK"`

	LogLevel  string `envconfig:"CANOPY_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"CANOPY_LOG_FORMAT" default:"text"`
}

// Load reads the given .env files (".env" when none are named) into the environment, then
// decodes the environment. Missing .env files are not an error; variables already set in
// the environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}
	return &cfg, nil
}

// LLM returns the connection descriptor shared by compiled workflows.
func (c *Config) LLM() *domain.LLMConfig {
	return &domain.LLMConfig{
		Provider: c.LLMProvider,
		Model:    c.LLMModel,
		APIKey:   c.LLMAPIKey,
		BaseURL:  c.LLMBaseURL,
	}
}

// Keys decodes the base64 encryption keys. It returns a nil active key when encryption
// is not configured.
func (c *Config) Keys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		return nil, nil, nil
	}
	active, err = decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("CANOPY_ENCRYPTION_KEY: %w", err)
	}
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("CANOPY_ENCRYPTION_FALLBACK_KEYS[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
