// Package config loads service configuration from an optional YAML file and
// KIDQUEST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/kidquest/internal/llm"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      llm.Config     `mapstructure:"llm"`
	Engine   Engine         `mapstructure:"engine"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Mode       string `mapstructure:"mode"` // dev or prod
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// RedisConfig enables the distributed answer lock when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080", Mode: "release"},
		Log: LogConfig{
			Mode:       "prod",
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Tracing: TracingConfig{ServiceName: "kidquest", SampleRatio: 1},
		Redis:   RedisConfig{LockTTL: 10 * time.Second},
		LLM:     llm.DefaultConfig(),
		Engine:  DefaultEngine(),
	}
}

// envBindings maps config keys to the conventional env names read in
// addition to KIDQUEST_<KEY>.
var envBindings = map[string]string{
	"server.addr":                "KIDQUEST_ADDR",
	"server.mode":                "KIDQUEST_MODE",
	"database.path":              "KIDQUEST_DB",
	"log.mode":                   "KIDQUEST_LOG_MODE",
	"log.level":                  "KIDQUEST_LOG_LEVEL",
	"log.file":                   "KIDQUEST_LOG_FILE",
	"tracing.enabled":            "KIDQUEST_TRACING",
	"redis.addr":                 "KIDQUEST_REDIS_ADDR",
	"redis.password":             "KIDQUEST_REDIS_PASSWORD",
	"llm.provider":               "KIDQUEST_LLM_PROVIDER",
	"llm.timeout":                "KIDQUEST_LLM_TIMEOUT",
	"llm.anthropic.api_key":      "KIDQUEST_ANTHROPIC_API_KEY",
	"llm.anthropic.model":        "KIDQUEST_ANTHROPIC_MODEL",
	"llm.openai.api_key":         "KIDQUEST_OPENAI_API_KEY",
	"llm.openai.model":           "KIDQUEST_OPENAI_MODEL",
	"llm.openai.base_url":        "KIDQUEST_OPENAI_BASE_URL",
	"llm.gemini.api_key":         "KIDQUEST_GEMINI_API_KEY",
	"llm.gemini.model":           "KIDQUEST_GEMINI_MODEL",
	"llm.openrouter.api_key":     "KIDQUEST_OPENROUTER_API_KEY",
	"llm.openrouter.model":       "KIDQUEST_OPENROUTER_MODEL",

	"engine.generation_quota":      "KIDQUEST_GENERATION_QUOTA",
	"engine.challenge_probability": "KIDQUEST_CHALLENGE_PROBABILITY",
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("kidquest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/kidquest")
	}

	v.SetEnvPrefix("KIDQUEST")
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// read loads the config file if present. A missing file is only an error
// when the path was given explicitly.
func read(v *viper.Viper, explicit bool) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !explicit && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Fall back to the standard provider API key variables.
	if cfg.LLM.Provider == "" {
		if discovered, ok := llm.DiscoverConfig(); ok {
			discovered.RateLimit = cfg.LLM.RateLimit
			discovered.Timeout = cfg.LLM.Timeout
			cfg.LLM = discovered
		}
	}

	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from path (or the default search path when
// empty) and the environment.
func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := read(v, path != ""); err != nil {
		return nil, err
	}
	return decode(v)
}
