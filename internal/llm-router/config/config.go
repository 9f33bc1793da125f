package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	FamilyRemote = "remote"
	FamilyLocal  = "local"
)

type Config struct {
	Server   ServerConfig             `mapstructure:"server"`
	Logging  LoggingConfig            `mapstructure:"logging"`
	Routing  RoutingConfig            `mapstructure:"routing"`
	Families FamiliesConfig           `mapstructure:"families"`
	Backends map[string]BackendConfig `mapstructure:"backends"`
	Tiers    []TierConfig             `mapstructure:"tiers"`
	Journal  JournalConfig            `mapstructure:"journal"`
	Metrics  MetricsConfig            `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	Host        string        `mapstructure:"host"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CORS        CORSConfig    `mapstructure:"cors"`
	Environment string        `mapstructure:"environment"`
	APIKeys     []string      `mapstructure:"api_keys"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type RoutingConfig struct {
	Primary          string        `mapstructure:"primary"`
	Fallbacks        []string      `mapstructure:"fallbacks"`
	Backoff          time.Duration `mapstructure:"backoff"`
	PremiumThreshold float64       `mapstructure:"premium_threshold"`
	StatsSchedule    string        `mapstructure:"stats_schedule"`
}

type FamiliesConfig struct {
	Remote FamilyConfig `mapstructure:"remote"`
	Local  FamilyConfig `mapstructure:"local"`
}

type FamilyConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type BackendConfig struct {
	Family    string            `mapstructure:"family"`
	BaseURL   string            `mapstructure:"base_url"`
	APIKey    string            `mapstructure:"api_key"`
	APIKeyEnv string            `mapstructure:"api_key_env"`
	Model     string            `mapstructure:"model"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	Enabled   bool              `mapstructure:"enabled"`
	Headers   map[string]string `mapstructure:"headers"`
}

// Credential returns the configured key, falling back to the environment
// variable named by APIKeyEnv.
func (b BackendConfig) Credential() string {
	if b.APIKey != "" {
		return b.APIKey
	}
	if b.APIKeyEnv != "" {
		return os.Getenv(b.APIKeyEnv)
	}
	return ""
}

type TierConfig struct {
	ID            string   `mapstructure:"id"`
	Backends      []string `mapstructure:"backends"`
	Priority      int      `mapstructure:"priority"`
	MaxComplexity float64  `mapstructure:"max_complexity"`
	Description   string   `mapstructure:"description"`
	Premium       bool     `mapstructure:"premium"`
}

type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load loads the configuration from config files and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(v)
}

// decode applies defaults and env overrides on top of whatever v has read.
func decode(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(config.Tiers) == 0 {
		config.Tiers = fallbackTiers(config.Backends)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.timeout", 120*time.Second)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors.enabled", true)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "router.log")
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)

	v.SetDefault("server.api_keys", []string{})

	v.SetDefault("routing.primary", "")
	v.SetDefault("routing.fallbacks", []string{})
	v.SetDefault("routing.backoff", time.Second)
	v.SetDefault("routing.premium_threshold", 0.7)
	v.SetDefault("routing.stats_schedule", "@every 5m")

	v.SetDefault("families.remote.enabled", true)
	v.SetDefault("families.local.enabled", true)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.path", "attempts.db")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Built-in backends are registered key by key so env overrides such as
	// BACKENDS_OLLAMA_BASE_URL can reach them.
	if !v.IsSet("backends") {
		for id, b := range DefaultBackends() {
			prefix := "backends." + id + "."
			v.SetDefault(prefix+"family", b.Family)
			v.SetDefault(prefix+"base_url", b.BaseURL)
			v.SetDefault(prefix+"api_key", "")
			v.SetDefault(prefix+"api_key_env", b.APIKeyEnv)
			v.SetDefault(prefix+"model", b.Model)
			v.SetDefault(prefix+"timeout", b.Timeout)
			v.SetDefault(prefix+"enabled", b.Enabled)
			if len(b.Headers) > 0 {
				v.SetDefault(prefix+"headers", b.Headers)
			}
		}
	}
}

// fallbackTiers returns the built-in tiers when every backend they name is
// configured, otherwise a single tier holding all backends sorted by id.
func fallbackTiers(backends map[string]BackendConfig) []TierConfig {
	tiers := DefaultTiers()
	for _, t := range tiers {
		for _, id := range t.Backends {
			if _, ok := backends[id]; !ok {
				ids := make([]string, 0, len(backends))
				for id := range backends {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				return []TierConfig{{
					ID:            "default",
					Backends:      ids,
					Priority:      1,
					MaxComplexity: 1.0,
					Description:   "All configured backends",
				}}
			}
		}
	}
	return tiers
}

// validateConfig performs validation on the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if len(config.Backends) == 0 {
		return fmt.Errorf("at least one backend must be configured")
	}

	enabled := 0
	for id, b := range config.Backends {
		switch b.Family {
		case FamilyRemote, FamilyLocal:
		default:
			return fmt.Errorf("backend %s: unknown family %q", id, b.Family)
		}
		if b.BaseURL == "" {
			return fmt.Errorf("backend %s: base_url is required", id)
		}
		if config.IsBackendEnabled(id) {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one backend must be enabled")
	}

	seen := make(map[string]bool)
	for _, t := range config.Tiers {
		if t.ID == "" {
			return fmt.Errorf("tier id is required")
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate tier: %s", t.ID)
		}
		seen[t.ID] = true
		for _, id := range t.Backends {
			if _, ok := config.Backends[id]; !ok {
				return fmt.Errorf("tier %s references unknown backend: %s", t.ID, id)
			}
		}
	}

	for _, id := range config.RoutingOrder() {
		if _, ok := config.Backends[id]; !ok {
			return fmt.Errorf("routing references unknown backend: %s", id)
		}
	}

	if config.Routing.Backoff < 0 {
		return fmt.Errorf("routing backoff must not be negative")
	}

	return nil
}

// IsBackendEnabled reports whether the backend exists, is enabled and its
// family is enabled.
func (c *Config) IsBackendEnabled(id string) bool {
	b, ok := c.Backends[id]
	if !ok || !b.Enabled {
		return false
	}
	switch b.Family {
	case FamilyRemote:
		return c.Families.Remote.Enabled
	case FamilyLocal:
		return c.Families.Local.Enabled
	default:
		return false
	}
}

// RoutingOrder returns the primary backend followed by the fallbacks, without
// duplicates. It is empty when neither is configured. The order only limits
// which backends are routed to; attempt order comes from the tiers.
func (c *Config) RoutingOrder() []string {
	var order []string
	seen := make(map[string]bool)
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		order = append(order, id)
	}
	add(c.Routing.Primary)
	for _, id := range c.Routing.Fallbacks {
		add(id)
	}
	return order
}

// defaultBackendTimeout applies to backends without a timeout of their own.
const defaultBackendTimeout = 30 * time.Second

// writeTimeoutMargin leaves room to encode the response after the last attempt.
const writeTimeoutMargin = 5 * time.Second

// WorstCaseRouting is the longest a request can spend in the fallback loop:
// every routed backend timing out, with a backoff between attempts. A caller
// timeout longer than a backend's own is not accounted for.
func (c *Config) WorstCaseRouting() time.Duration {
	var total time.Duration
	n := 0
	for _, id := range c.RoutingOrder() {
		if !c.IsBackendEnabled(id) {
			continue
		}
		timeout := c.Backends[id].Timeout
		if timeout <= 0 {
			timeout = defaultBackendTimeout
		}
		total += timeout
		n++
	}
	if n > 1 {
		total += time.Duration(n-1) * c.Routing.Backoff
	}
	return total
}

// WriteTimeout is server.timeout, raised when needed so a request that walks
// the whole fallback sequence can still be answered.
func (c *Config) WriteTimeout() time.Duration {
	if need := c.WorstCaseRouting() + writeTimeoutMargin; need > c.Server.Timeout {
		return need
	}
	return c.Server.Timeout
}

func (c *Config) GetBackendConfig(id string) (*BackendConfig, error) {
	b, ok := c.Backends[id]
	if !ok {
		return nil, fmt.Errorf("backend not found: %s", id)
	}
	return &b, nil
}
