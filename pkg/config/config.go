// Package config loads settings for the degiro tools from defaults, DEGIRO_*
// environment variables and an optional YAML or JSON file, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/betbot/degiro/pkg/logger"
)

// Session store kinds.
const (
	StoreNone   = "none"
	StoreFile   = "file"
	StoreBadger = "badger"
)

// Duration reads "30s" style strings from YAML and JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type CredentialsConfig struct {
	Username        string `yaml:"username" json:"username"`
	Password        string `yaml:"password" json:"password"`
	OneTimePassword string `yaml:"one_time_password" json:"one_time_password"`
}

type SessionConfig struct {
	ID      string `yaml:"id" json:"id"`
	Account int64  `yaml:"account" json:"account"`
	// Store is none, file or badger.
	Store string `yaml:"store" json:"store"`
	Path  string `yaml:"path" json:"path"`
	// EncryptionKey is a 32 byte hex or base64 key for the badger store.
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
}

type HTTPConfig struct {
	Timeout Duration `yaml:"timeout" json:"timeout"`
	// RatePerSecond > 0 replaces the per-endpoint defaults with one uniform
	// token bucket per endpoint class.
	RatePerSecond float64 `yaml:"rate_per_second" json:"rate_per_second"`
	Burst         int     `yaml:"burst" json:"burst"`
	DisableLimit  bool    `yaml:"disable_rate_limit" json:"disable_rate_limit"`
}

type QuotesConfig struct {
	Strict bool `yaml:"strict" json:"strict"`
}

type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	JSON       bool   `yaml:"json" json:"json"`
}

type JournalConfig struct {
	// Path to the sqlite order journal; empty disables it.
	Path string `yaml:"path" json:"path"`
}

type GatewayConfig struct {
	Listen        string   `yaml:"listen" json:"listen"`
	QuoteInterval Duration `yaml:"quote_interval" json:"quote_interval"`
}

type WatchConfig struct {
	Interval Duration `yaml:"interval" json:"interval"`
}

type Config struct {
	Credentials  CredentialsConfig `yaml:"credentials" json:"credentials"`
	Session      SessionConfig     `yaml:"session" json:"session"`
	BaseURL      string            `yaml:"base_url" json:"base_url"`
	QuotecastURL string            `yaml:"quotecast_url" json:"quotecast_url"`
	Debug        bool              `yaml:"debug" json:"debug"`
	HTTP         HTTPConfig        `yaml:"http" json:"http"`
	Quotes       QuotesConfig      `yaml:"quotes" json:"quotes"`
	Log          LogConfig         `yaml:"log" json:"log"`
	Journal      JournalConfig     `yaml:"journal" json:"journal"`
	Gateway      GatewayConfig     `yaml:"gateway" json:"gateway"`
	Watch        WatchConfig       `yaml:"watch" json:"watch"`
}

// Load builds a Config. path may be empty.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyEnv()
	if path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse json config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (want .yaml, .yml or .json)", ext)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Credentials.Username = getEnv("DEGIRO_USER", c.Credentials.Username)
	c.Credentials.Password = getEnv("DEGIRO_PASS", c.Credentials.Password)
	c.Credentials.OneTimePassword = getEnv("DEGIRO_ONE_TIME_PASSWORD", c.Credentials.OneTimePassword)
	c.Session.ID = getEnv("DEGIRO_SID", c.Session.ID)
	c.Session.Account = parseInt64Env("DEGIRO_ACCOUNT", c.Session.Account)
	c.Session.Store = getEnv("DEGIRO_SESSION_STORE", c.Session.Store)
	c.Session.Path = getEnv("DEGIRO_SESSION_PATH", c.Session.Path)
	c.Session.EncryptionKey = getEnv("DEGIRO_SESSION_KEY", c.Session.EncryptionKey)
	c.BaseURL = getEnv("DEGIRO_BASE_URL", c.BaseURL)
	c.QuotecastURL = getEnv("DEGIRO_QUOTECAST_URL", c.QuotecastURL)
	c.Debug = parseBoolEnv("DEGIRO_DEBUG", c.Debug)
	c.Quotes.Strict = parseBoolEnv("DEGIRO_STRICT_QUOTES", c.Quotes.Strict)
	c.Journal.Path = getEnv("DEGIRO_JOURNAL", c.Journal.Path)
	c.Gateway.Listen = getEnv("DEGIRO_LISTEN", c.Gateway.Listen)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
}

func (c *Config) applyDefaults() {
	if c.Session.Store == "" {
		c.Session.Store = StoreNone
	}
	if c.Session.Path == "" {
		switch c.Session.Store {
		case StoreFile:
			c.Session.Path = filepath.Join("data", "session")
		case StoreBadger:
			c.Session.Path = filepath.Join("data", "session.badger")
		}
	}
	if c.HTTP.Timeout.Duration == 0 {
		c.HTTP.Timeout.Duration = 30 * time.Second
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Debug {
		c.Log.Level = "debug"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 14
	}
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = "127.0.0.1:8088"
	}
	if c.Gateway.QuoteInterval.Duration == 0 {
		c.Gateway.QuoteInterval.Duration = 5 * time.Second
	}
	if c.Watch.Interval.Duration == 0 {
		c.Watch.Interval.Duration = 5 * time.Second
	}
}

// Validate checks structural settings. Credentials are checked by
// RequireLogin since several commands work without them.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case StoreNone, StoreFile:
	case StoreBadger:
		if c.Session.EncryptionKey == "" {
			return fmt.Errorf("session.encryption_key (DEGIRO_SESSION_KEY) is required for the badger store")
		}
	default:
		return fmt.Errorf("unknown session store %q (want none, file or badger)", c.Session.Store)
	}
	if c.HTTP.Timeout.Duration < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if c.HTTP.RatePerSecond < 0 {
		return fmt.Errorf("http.rate_per_second must not be negative")
	}
	if c.Gateway.QuoteInterval.Duration < 100*time.Millisecond {
		return fmt.Errorf("gateway.quote_interval must be at least 100ms")
	}
	if c.Watch.Interval.Duration < 100*time.Millisecond {
		return fmt.Errorf("watch.interval must be at least 100ms")
	}
	return nil
}

// RequireLogin reports whether the config can open a session: either
// username and password, a session id, or a session store to resume from.
func (c *Config) RequireLogin() error {
	if c.Credentials.Username != "" && c.Credentials.Password != "" {
		return nil
	}
	if c.Session.ID != "" || c.Session.Store != StoreNone {
		return nil
	}
	return fmt.Errorf("no credentials: set DEGIRO_USER and DEGIRO_PASS, DEGIRO_SID, or a session store")
}

// LoggerConfig maps the log section onto pkg/logger.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      c.Log.Level,
		OutputFile: c.Log.File,
		MaxSize:    c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAgeDays,
		Compress:   true,
		JSON:       c.Log.JSON,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt64Env(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
