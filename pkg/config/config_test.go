package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DEGIRO_USER", "DEGIRO_PASS", "DEGIRO_ONE_TIME_PASSWORD", "DEGIRO_SID", "DEGIRO_ACCOUNT",
	"DEGIRO_DEBUG", "DEGIRO_SESSION_STORE", "DEGIRO_SESSION_PATH", "DEGIRO_SESSION_KEY",
	"DEGIRO_BASE_URL", "DEGIRO_QUOTECAST_URL", "DEGIRO_STRICT_QUOTES", "DEGIRO_JOURNAL",
	"DEGIRO_LISTEN", "LOG_LEVEL", "LOG_FILE",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEGIRO_USER", "alice")
	t.Setenv("DEGIRO_PASS", "secret")
	t.Setenv("DEGIRO_ACCOUNT", "1001")
	t.Setenv("DEGIRO_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.RequireLogin())

	assert.Equal(t, "alice", cfg.Credentials.Username)
	assert.Equal(t, int64(1001), cfg.Session.Account)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, StoreNone, cfg.Session.Store)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout.Duration)
	assert.Equal(t, "127.0.0.1:8088", cfg.Gateway.Listen)
}

func TestLoadFileOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEGIRO_USER", "from-env")
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "degiro.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
credentials:
  username: from-file
session:
  store: file
http:
  timeout: 5s
quotes:
  strict: true
gateway:
  quote_interval: 2s
`), 0o600))

	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Credentials.Username)
	assert.Equal(t, StoreFile, cfg.Session.Store)
	assert.Equal(t, filepath.Join("data", "session"), cfg.Session.Path)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout.Duration)
	assert.Equal(t, 2*time.Second, cfg.Gateway.QuoteInterval.Duration)
	assert.True(t, cfg.Quotes.Strict)

	jsonPath := filepath.Join(dir, "degiro.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"session":{"store":"badger","encryption_key":"k"},"watch":{"interval":"1s"}}`), 0o600))
	cfg, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Credentials.Username)
	assert.Equal(t, StoreBadger, cfg.Session.Store)
	assert.Equal(t, time.Second, cfg.Watch.Interval.Duration)
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	toml := filepath.Join(dir, "degiro.toml")
	require.NoError(t, os.WriteFile(toml, []byte(`x = 1`), 0o600))
	_, err = Load(toml)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("http:\n  timeout: soon\n"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Store = "redis" }, wantErr: true},
		{name: "badger without key", mutate: func(c *Config) { c.Session.Store = StoreBadger }, wantErr: true},
		{name: "badger with key", mutate: func(c *Config) { c.Session.Store = StoreBadger; c.Session.EncryptionKey = "x" }},
		{name: "negative rate", mutate: func(c *Config) { c.HTTP.RatePerSecond = -1 }, wantErr: true},
		{name: "tiny quote interval", mutate: func(c *Config) { c.Gateway.QuoteInterval.Duration = time.Millisecond }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			c.applyDefaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireLogin(t *testing.T) {
	c := &Config{}
	c.applyDefaults()
	assert.Error(t, c.RequireLogin())

	c.Session.ID = "sid"
	assert.NoError(t, c.RequireLogin())
}
