// Package config loads codeagent settings from flags, environment
// variables and an optional config file.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/martinemde/codeagent/unifiedllm"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CODEAGENT_MODEL.
const EnvPrefix = "CODEAGENT"

const (
	DefaultCommandTimeout = 2 * time.Minute
	DefaultFetchTimeout   = 30 * time.Second
)

// Config holds every runtime setting.
type Config struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api-key"`
	BaseURL    string `mapstructure:"base-url"`
	MaxTokens  int    `mapstructure:"max-tokens"`
	MaxRetries int    `mapstructure:"max-retries"`

	MaxRounds           int           `mapstructure:"max-rounds"`
	MaxParallelTools    int           `mapstructure:"max-parallel-tools"`
	RoundTimeout        time.Duration `mapstructure:"round-timeout"`
	ResultCharLimit     int           `mapstructure:"result-char-limit"`
	LoopDetectionWindow int           `mapstructure:"loop-detection-window"`
	Instructions        string        `mapstructure:"instructions"`

	CommandTimeout time.Duration `mapstructure:"command-timeout"`
	FetchTimeout   time.Duration `mapstructure:"fetch-timeout"`
	WorkingDir     string        `mapstructure:"working-dir"`

	TranscriptDir  string `mapstructure:"transcript-dir"`
	Color          string `mapstructure:"color"`
	NarrationWidth int    `mapstructure:"narration-width"`

	Logging LoggingConfig `mapstructure:",squash"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	LogLevel   string `mapstructure:"log-level"`
	LogFormat  string `mapstructure:"log-format"`
	LogFile    string `mapstructure:"log-file"`
	WithCaller bool   `mapstructure:"with-caller"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", "")
	v.SetDefault("model", unifiedllm.DefaultModel)
	// Keys without a default are invisible to Unmarshal, even when set in
	// the environment.
	v.SetDefault("api-key", "")
	v.SetDefault("base-url", "")
	v.SetDefault("instructions", "")
	v.SetDefault("transcript-dir", "")
	v.SetDefault("log-file", "")
	v.SetDefault("max-tokens", 4000)
	v.SetDefault("max-retries", 0)

	v.SetDefault("max-rounds", 0)
	v.SetDefault("max-parallel-tools", 0)
	v.SetDefault("round-timeout", time.Duration(0))
	v.SetDefault("result-char-limit", 0)
	v.SetDefault("loop-detection-window", 6)

	v.SetDefault("command-timeout", DefaultCommandTimeout)
	v.SetDefault("fetch-timeout", DefaultFetchTimeout)
	v.SetDefault("working-dir", "")

	v.SetDefault("color", "auto")
	v.SetDefault("narration-width", 100)

	v.SetDefault("log-level", "warn")
	v.SetDefault("log-format", "text")
	v.SetDefault("with-caller", false)
}

// NewViper returns a viper instance with defaults and environment binding.
// configFile, when set, must exist; otherwise config.yaml is looked up in
// the usual places and is optional.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".codeagent"))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "codeagent"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}
	return v, nil
}

// Load decodes v into a Config, fills in derived values and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if cfg.Provider == "" {
		cfg.Provider = unifiedllm.ProviderForModel(cfg.Model)
		if cfg.Provider == "" {
			cfg.Provider = "anthropic"
		}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnv(cfg.Provider))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// APIKeyEnv names the conventional API key variable for a provider.
func APIKeyEnv(provider string) string {
	return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
}

// Validate rejects settings the agent cannot run with. A missing API key
// is not checked here; it surfaces on the first model call.
func (c *Config) Validate() error {
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	for name, n := range map[string]int{
		"max-tokens":            c.MaxTokens,
		"max-retries":           c.MaxRetries,
		"max-rounds":            c.MaxRounds,
		"max-parallel-tools":    c.MaxParallelTools,
		"result-char-limit":     c.ResultCharLimit,
		"loop-detection-window": c.LoopDetectionWindow,
		"narration-width":       c.NarrationWidth,
	} {
		if n < 0 {
			return errors.Errorf("%s must not be negative, got %d", name, n)
		}
	}
	for name, d := range map[string]time.Duration{
		"round-timeout":   c.RoundTimeout,
		"command-timeout": c.CommandTimeout,
		"fetch-timeout":   c.FetchTimeout,
	} {
		if d < 0 {
			return errors.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return errors.Errorf("color must be auto, always or never, got %q", c.Color)
	}
	switch c.Logging.LogFormat {
	case "json", "text":
	default:
		return errors.Errorf("log-format must be json or text, got %q", c.Logging.LogFormat)
	}
	return nil
}
