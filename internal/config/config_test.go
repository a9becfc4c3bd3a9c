package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unset clears variables for one test and restores them afterwards.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	unset(t, "LLM_PROVIDER", "LLM_MODEL", "CANOPY_ADDR", "CANOPY_WORKERS", "CANOPY_CAPABILITY_TIMEOUT", "CANOPY_HISTORY_BACKEND")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, "file", cfg.HistoryBackend)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("LLM_PROVIDER=ollama\nCANOPY_SESSION_TTL=1h\nCANOPY_PII_PATTERNS=a,b\n"), 0644))

	t.Setenv("LLM_PROVIDER", "deepseek")
	unset(t, "CANOPY_SESSION_TTL", "CANOPY_PII_PATTERNS")

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cfg.LLMProvider, "the environment wins over the file")
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"a", "b"}, cfg.PIIPatterns)
	assert.Equal(t, "deepseek", cfg.LLM().Provider)
}

func TestKeys(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	cfg := &Config{EncryptionKey: key, FallbackKeys: []string{key}}

	active, fallback, err := cfg.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Len(t, fallback, 1)

	cfg.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
	_, _, err = cfg.Keys()
	assert.ErrorContains(t, err, "32 bytes")

	active, _, err = (&Config{}).Keys()
	require.NoError(t, err)
	assert.Nil(t, active)
}
