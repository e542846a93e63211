// Package config loads and validates collector configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Render    RenderConfig    `mapstructure:"render"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	AI        AIConfig        `mapstructure:"ai"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	DB        DBConfig        `mapstructure:"db"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// JobsConfig governs the batch scheduler and the dispatcher.
type JobsConfig struct {
	BatchWidth      int `mapstructure:"batch_width"`
	Workers         int `mapstructure:"workers"`
	QueueDepth      int `mapstructure:"queue_depth"`
	MaxAttempts     int `mapstructure:"max_attempts"`
	RetryDelaySec   int `mapstructure:"retry_delay_seconds"`
	ExpiryMinutes   int `mapstructure:"expiry_minutes"`
}

// RenderConfig configures the headless rendering subsystem.
type RenderConfig struct {
	MaxParallel       int     `mapstructure:"max_parallel"`
	UserAgent         string  `mapstructure:"user_agent"`
	HardTimeoutSec    int     `mapstructure:"hard_timeout_seconds"`
	IdleTimeoutSec    int     `mapstructure:"idle_timeout_seconds"`
	SettleDelayMs     int     `mapstructure:"settle_delay_ms"`
	MaxTextLen        int     `mapstructure:"max_text_len"`
	DomainQPS         float64 `mapstructure:"domain_qps"`
}

// DetectorConfig tunes the heavy-JS page heuristic.
type DetectorConfig struct {
	AllowDomains    []string `mapstructure:"allow_domains"`
	ProbeEnabled    bool     `mapstructure:"probe_enabled"`
	ProbeTimeoutSec int      `mapstructure:"probe_timeout_seconds"`
}

// AIConfig wires the search providers and the failover policy.
type AIConfig struct {
	ClaudeAPIKey  string `mapstructure:"claude_api_key"`
	ClaudeModel   string `mapstructure:"claude_model"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	GeminiModel   string `mapstructure:"gemini_model"`
	MaxTokens     int    `mapstructure:"max_tokens"`
	PrimaryBudget int64  `mapstructure:"primary_budget"`
	CooloffSec    int    `mapstructure:"cooloff_seconds"`
}

// DiscoveryConfig controls the per-destination collection pass.
type DiscoveryConfig struct {
	Timezone       string `mapstructure:"timezone"`
	FeedEnabled    bool   `mapstructure:"feed_enabled"`
	FeedTimeoutSec int    `mapstructure:"feed_timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ScheduleConfig enables periodic collection of stale destinations.
type ScheduleConfig struct {
	Spec           string `mapstructure:"spec"`
	StaleAfterHrs  int    `mapstructure:"stale_after_hours"`
	MaxPerSweep    int    `mapstructure:"max_per_sweep"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("jobs.batch_width", 15)
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.queue_depth", 64)
	v.SetDefault("jobs.max_attempts", 3)
	v.SetDefault("jobs.retry_delay_seconds", 30)
	v.SetDefault("jobs.expiry_minutes", 120)
	v.SetDefault("render.max_parallel", 3)
	v.SetDefault("render.user_agent", "content-collector/1.0")
	v.SetDefault("render.hard_timeout_seconds", 45)
	v.SetDefault("render.idle_timeout_seconds", 10)
	v.SetDefault("render.settle_delay_ms", 2000)
	v.SetDefault("render.max_text_len", 15000)
	v.SetDefault("render.domain_qps", 1.0)
	v.SetDefault("detector.probe_enabled", true)
	v.SetDefault("detector.probe_timeout_seconds", 8)
	v.SetDefault("ai.claude_model", "claude-sonnet-4-20250514")
	v.SetDefault("ai.gemini_model", "gemini-2.5-flash")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.cooloff_seconds", 60)
	v.SetDefault("discovery.timezone", "America/New_York")
	v.SetDefault("discovery.feed_enabled", true)
	v.SetDefault("discovery.feed_timeout_seconds", 10)
	v.SetDefault("schedule.stale_after_hours", 168)
	v.SetDefault("schedule.max_per_sweep", 50)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Jobs.BatchWidth <= 0 {
		return fmt.Errorf("jobs.batch_width must be > 0")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs.workers must be > 0")
	}
	if c.Render.MaxParallel <= 0 {
		return fmt.Errorf("render.max_parallel must be > 0")
	}
	if c.AI.ClaudeAPIKey == "" && c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("at least one of ai.claude_api_key or ai.gemini_api_key must be set")
	}
	if c.Discovery.Timezone == "" {
		return fmt.Errorf("discovery.timezone must be set")
	}
	return nil
}

// RetryDelay returns the dispatcher retry delay as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Jobs.RetryDelaySec) * time.Second
}

// QueueExpiry returns the dispatcher item expiry as a duration.
func (c Config) QueueExpiry() time.Duration {
	return time.Duration(c.Jobs.ExpiryMinutes) * time.Minute
}

// StaleAfter returns the schedule staleness window as a duration.
func (c Config) StaleAfter() time.Duration {
	return time.Duration(c.Schedule.StaleAfterHrs) * time.Hour
}
