package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all shopchat configuration.
type Config struct {
	// Chat backend
	Chat ChatConfig `yaml:"chat"`

	// Durable conversation storage
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`
}

// ChatConfig configures the outbound chat transport.
type ChatConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // "0s" disables the request timeout

	// ConversationID pins the conversation identifier instead of generating one.
	ConversationID string `yaml:"conversation_id"`

	// CustomerID pre-fills the customer identifier field.
	CustomerID string `yaml:"customer_id"`
}

// StorageConfig selects and configures the storage driver.
type StorageConfig struct {
	Driver    string `yaml:"driver"` // file, sqlite, redis, memory, none
	Path      string `yaml:"path"`   // directory for file, database file for sqlite
	Key       string `yaml:"key"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	RedisTTL  string `yaml:"redis_ttl"` // "0s" = no expiry
	Watch     bool   `yaml:"watch"`     // reload when another process rewrites the key (file driver)
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, console
	File       string          `yaml:"file"`   // relative paths resolve against the data dir
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme    string `yaml:"theme"` // light, dark, auto
	Markdown bool   `yaml:"markdown"`
}

// DefaultStorageKey is the key the conversation snapshot is stored under.
const DefaultStorageKey = "chatState"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "2m",
		},
		Storage: StorageConfig{
			Driver:   "file",
			Path:     "storage",
			Key:      DefaultStorageKey,
			RedisTTL: "0s",
			Watch:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   filepath.Join("logs", "shopchat.log"),
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
	}
}

// DefaultDataDir returns ~/.shopchat, falling back to ./.shopchat.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".shopchat"
	}
	return filepath.Join(home, ".shopchat")
}

// DefaultConfigPath returns the config file inside dataDir.
func DefaultConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Base URL: CHAT_SERVICE_API is the name the web frontend used
	if u := os.Getenv("CHAT_SERVICE_API"); u != "" {
		c.Chat.BaseURL = u
	}
	if u := os.Getenv("SHOPCHAT_API_URL"); u != "" {
		c.Chat.BaseURL = u
	}
	if id := os.Getenv("SHOPCHAT_CUSTOMER_ID"); id != "" {
		c.Chat.CustomerID = id
	}

	if d := os.Getenv("SHOPCHAT_STORAGE"); d != "" {
		c.Storage.Driver = d
	}
	if addr := os.Getenv("SHOPCHAT_REDIS_ADDR"); addr != "" {
		c.Storage.RedisAddr = addr
	}

	if lvl := os.Getenv("SHOPCHAT_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if v := os.Getenv("SHOPCHAT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// GetChatTimeout returns the chat request timeout. Zero means no timeout.
func (c *Config) GetChatTimeout() time.Duration {
	d, err := time.ParseDuration(c.Chat.Timeout)
	if err != nil || d < 0 {
		return 2 * time.Minute
	}
	return d
}

// GetRedisTTL returns the redis key TTL. Zero means no expiry.
func (c *Config) GetRedisTTL() time.Duration {
	d, err := time.ParseDuration(c.Storage.RedisTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// ResolvePath joins p onto dataDir unless p is already absolute.
func ResolvePath(dataDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

// ValidDrivers lists all supported storage drivers.
var ValidDrivers = []string{"file", "sqlite", "redis", "memory", "none"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chat.BaseURL == "" {
		return fmt.Errorf("chat base URL not configured (set chat.base_url, SHOPCHAT_API_URL or CHAT_SERVICE_API)")
	}
	u, err := url.Parse(c.Chat.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid chat base URL: %q", c.Chat.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported chat base URL scheme: %s", u.Scheme)
	}

	validDriver := false
	for _, d := range ValidDrivers {
		if c.Storage.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid storage driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	if c.Storage.Driver == "redis" && c.Storage.RedisAddr == "" {
		return fmt.Errorf("storage driver redis requires storage.redis_addr")
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage key must not be empty")
	}

	return nil
}
