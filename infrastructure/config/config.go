// Package config loads harness settings from defaults, an optional YAML file,
// a .env file and UI_HARNESS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. UI_HARNESS_BASE_URL
const EnvPrefix = "UI_HARNESS"

// Config is the full harness configuration
type Config struct {
	BaseURL   string          `mapstructure:"base_url"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	History   HistoryConfig   `mapstructure:"history"`
	Log       LogConfig       `mapstructure:"log"`
	Scenarios ScenariosConfig `mapstructure:"scenarios"`
}

type BrowserConfig struct {
	Backend  string         `mapstructure:"backend"`
	Headless bool           `mapstructure:"headless"`
	SlowMo   float64        `mapstructure:"slow_mo"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	Selenium SeleniumConfig `mapstructure:"selenium"`
}

type ViewportConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type SeleniumConfig struct {
	DriverPath   string `mapstructure:"driver_path"`
	ChromeBinary string `mapstructure:"chrome_binary"`
	Port         int    `mapstructure:"port"`
}

type TimeoutsConfig struct {
	Navigation time.Duration `mapstructure:"navigation"`
	Locate     time.Duration `mapstructure:"locate"`
	Action     time.Duration `mapstructure:"action"`
	Wait       time.Duration `mapstructure:"wait"`
}

type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ScenariosConfig struct {
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "http://localhost:3000")

	// -- Browser --
	v.SetDefault("browser.backend", "playwright")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo", 0)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)
	v.SetDefault("browser.selenium.driver_path", "")
	v.SetDefault("browser.selenium.chrome_binary", "")
	v.SetDefault("browser.selenium.port", 9515)

	// -- Timeouts --
	v.SetDefault("timeouts.navigation", "30s")
	v.SetDefault("timeouts.locate", "5s")
	v.SetDefault("timeouts.action", "5s")
	v.SetDefault("timeouts.wait", "5s")

	v.SetDefault("artifacts.dir", ".")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dir", ".ui_harness")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("scenarios.dir", "")
}

// Initialize wires v to the config file, the .env file and the environment.
// A missing config file or .env file is not an error.
func Initialize(v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("ui_harness")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// NewConfigFromViper - decodes and validates the configuration held by v
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	switch c.Browser.Backend {
	case "playwright", "selenium":
	default:
		return fmt.Errorf("browser.backend must be playwright or selenium, got %q", c.Browser.Backend)
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return errors.New("browser.viewport must be positive")
	}
	for key, d := range map[string]time.Duration{
		"timeouts.navigation": c.Timeouts.Navigation,
		"timeouts.locate":     c.Timeouts.Locate,
		"timeouts.action":     c.Timeouts.Action,
		"timeouts.wait":       c.Timeouts.Wait,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// NewLogger - creates the logger described by cfg, writing to out
func NewLogger(cfg LogConfig, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return logger
}
