package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config is the user configuration. It is loaded once per run and passed by
// value or pointer to whatever needs it.
type Config struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Provider       string `mapstructure:"provider"`
	APIBase        string `mapstructure:"api_base"`
	Timeout        int    `mapstructure:"timeout"`
	Language       string `mapstructure:"language"`
	PromptTemplate string `mapstructure:"prompt_template"`
	LogFile        string `mapstructure:"log_file"`
}

const (
	DefaultModel      = "gemini-2.0-flash"
	DefaultProvider   = "gemini"
	DefaultLanguage   = "English"
	DefaultTimeout    = 30
	DefaultConfigDir  = "aic"
	DefaultConfigName = "config"
	DefaultConfigType = "yaml"
	EnvPrefix         = "AIC"
	// ConfigPathEnv overrides the default configuration file location.
	ConfigPathEnv = "AIC_CONFIG"
)

var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrConfigCorrupt  = errors.New("configuration file is corrupted, run `aic setup` to recreate it")
)

// Keys lists the settings accepted by `aic config set`.
var Keys = []string{
	"api_key",
	"model",
	"provider",
	"api_base",
	"timeout",
	"language",
	"prompt_template",
	"log_file",
}

var suggestedProviders = []string{"gemini", "openai"}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	return &Config{
		Model:    DefaultModel,
		Provider: DefaultProvider,
		Timeout:  DefaultTimeout,
		Language: DefaultLanguage,
	}
}

// DefaultPath returns $AIC_CONFIG, $XDG_CONFIG_HOME/aic/config.yaml or
// ~/.config/aic/config.yaml, in that order.
func DefaultPath() (string, error) {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p, nil
	}

	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("unable to find home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, DefaultConfigDir, DefaultConfigName+"."+DefaultConfigType), nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType(DefaultConfigType)
	}

	d := Defaults()
	v.SetDefault("api_key", "")
	v.SetDefault("model", d.Model)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("api_base", "")
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("language", d.Language)
	v.SetDefault("prompt_template", "")
	v.SetDefault("log_file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file at path. Environment variables prefixed
// with AIC_ override file values.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("unable to access configuration file: %w", err)
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigCorrupt, path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigCorrupt, path, err)
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("unable to create configuration directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType(DefaultConfigType)
	v.Set("api_key", cfg.APIKey)
	v.Set("model", cfg.Model)
	v.Set("provider", cfg.Provider)
	v.Set("api_base", cfg.APIBase)
	v.Set("timeout", cfg.Timeout)
	v.Set("language", cfg.Language)
	v.Set("prompt_template", cfg.PromptTemplate)
	v.Set("log_file", cfg.LogFile)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("unable to write configuration file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("unable to restrict configuration file permissions: %w", err)
	}
	return nil
}

// SetValue updates a single key in the file at path, creating the file from
// defaults when it does not exist yet.
func SetValue(path, key, value string) error {
	cfg, err := Load(path)
	if errors.Is(err, ErrConfigNotFound) {
		cfg, err = Defaults(), nil
	}
	if err != nil {
		return err
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	return Save(path, cfg)
}

// Set assigns value to the field named by key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "api_key":
		c.APIKey = value
	case "model":
		if value == "" {
			return errors.New("model cannot be empty")
		}
		c.Model = value
	case "provider":
		if !slices.Contains(suggestedProviders, value) {
			return fmt.Errorf("invalid provider %q, expected one of: %s", value, strings.Join(suggestedProviders, ", "))
		}
		c.Provider = value
	case "api_base":
		c.APIBase = value
	case "timeout":
		secs, err := strconv.Atoi(value)
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid timeout %q, expected a positive number of seconds", value)
		}
		c.Timeout = secs
	case "language":
		c.Language = value
	case "prompt_template":
		c.PromptTemplate = value
	case "log_file":
		c.LogFile = value
	default:
		return fmt.Errorf("unknown configuration key %q, expected one of: %s", key, strings.Join(Keys, ", "))
	}
	return nil
}

// IsConfigured reports whether the configuration can be used to call the service.
func (c *Config) IsConfigured() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != "" && c.Model != ""
}

// MaskAPIKey hides all but the last four characters of key.
func MaskAPIKey(key string) string {
	if key == "" {
		return "<not set>"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

// GetSuggestedProviders returns the providers aic can talk to.
func GetSuggestedProviders() []string {
	return suggestedProviders
}
