// Package config loads agent settings from defaults, an optional config file,
// AGT_-prefixed environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. AGT_BIOME_URL.
const EnvPrefix = "AGT"

// Config holds all configuration for the agent
type Config struct {
	Biome     BiomeConfig     `mapstructure:"biome"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// BiomeConfig locates the Biome service
type BiomeConfig struct {
	URL         string        `mapstructure:"url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// JobsConfig tunes the background job pollers
type JobsConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// Timeout bounds a single poller; zero waits for as long as the job runs.
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxPollers int           `mapstructure:"max_pollers"`
}

// AgentConfig contains model and transcript settings. TokenBudget is the
// estimated input size each request's conversation window must fit.
type AgentConfig struct {
	Model       string `mapstructure:"model"`
	MaxTokens   int64  `mapstructure:"max_tokens"`
	TokenBudget int    `mapstructure:"token_budget"`
	Transcript  string `mapstructure:"transcript"`
}

// ToolsConfig bounds what tools hand back to the model
type ToolsConfig struct {
	SearchMaxResults int `mapstructure:"search_max_results"`
	SearchMaxLinks   int `mapstructure:"search_max_links"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// TelemetryConfig switches the JSONL event log on
type TelemetryConfig struct {
	Observe   bool   `mapstructure:"observe"`
	EventsDir string `mapstructure:"events_dir"`
}

// NewViper returns a viper instance with defaults and environment lookup set
// up. Callers may bind flags on it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("biome.url", "http://biome_api:8082")
	v.SetDefault("biome.http_timeout", "30s")

	v.SetDefault("jobs.poll_interval", "1s")
	v.SetDefault("jobs.timeout", "0s")
	v.SetDefault("jobs.max_pollers", 32)

	v.SetDefault("agent.model", "")
	v.SetDefault("agent.max_tokens", 1024)
	v.SetDefault("agent.token_budget", 100000)
	v.SetDefault("agent.transcript", "conversation.json")

	v.SetDefault("tools.search_max_results", 10)
	v.SetDefault("tools.search_max_links", 20)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")

	v.SetDefault("telemetry.observe", false)
	v.SetDefault("telemetry.events_dir", ".agent")
}

// Load reads path (if non-empty) into v, then unmarshals and validates the
// result. Without a path, an agent.{json,yaml,toml} in the working directory
// is used when present.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agent")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Biome.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("biome.url must be an absolute http(s) URL, got %q", c.Biome.URL)
	}
	if c.Biome.HTTPTimeout <= 0 {
		return fmt.Errorf("biome.http_timeout must be positive")
	}
	if c.Jobs.PollInterval <= 0 {
		return fmt.Errorf("jobs.poll_interval must be positive")
	}
	if c.Jobs.Timeout < 0 {
		return fmt.Errorf("jobs.timeout must not be negative")
	}
	if c.Jobs.MaxPollers <= 0 {
		return fmt.Errorf("jobs.max_pollers must be positive")
	}
	if c.Agent.MaxTokens <= 0 {
		return fmt.Errorf("agent.max_tokens must be positive")
	}
	if c.Agent.TokenBudget <= 0 {
		return fmt.Errorf("agent.token_budget must be positive")
	}
	if strings.TrimSpace(c.Agent.Transcript) == "" {
		return fmt.Errorf("agent.transcript must not be empty")
	}
	if c.Tools.SearchMaxResults <= 0 || c.Tools.SearchMaxLinks <= 0 {
		return fmt.Errorf("tools.search_max_results and tools.search_max_links must be positive")
	}
	if c.Telemetry.Observe && strings.TrimSpace(c.Telemetry.EventsDir) == "" {
		return fmt.Errorf("telemetry.events_dir must be set when telemetry.observe is on")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
