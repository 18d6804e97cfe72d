// Package config loads application configuration: YAML defaults, an
// optional user override file, and the API key from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/reachy-companion/pkg/cost"
	"github.com/teslashibe/reachy-companion/pkg/wake"
)

// ReachyConfig selects how to reach the robot.
type ReachyConfig struct {
	// RobotIP is the daemon address. Ignored when Simulate is set.
	RobotIP string `yaml:"robot_ip"`
	// Simulate replaces hardware with logged movements.
	Simulate bool `yaml:"simulate"`
}

// GeminiConfig selects the Live model and audio rates.
type GeminiConfig struct {
	Model            string `yaml:"model" validate:"required"`
	Voice            string `yaml:"voice"`
	InputSampleRate  int    `yaml:"input_sample_rate" validate:"gt=0"`
	OutputSampleRate int    `yaml:"output_sample_rate" validate:"gt=0"`
}

// SessionConfig bounds conversation sessions. Durations are seconds in
// YAML, matching the section names.
type SessionConfig struct {
	MaxDurationSec      int     `yaml:"max_duration_sec" validate:"gt=0"`
	SilenceTimeoutSec   int     `yaml:"silence_timeout_sec" validate:"gt=0"`
	CooldownSec         int     `yaml:"cooldown_sec" validate:"gte=0"`
	SilenceRMSThreshold float64 `yaml:"silence_rms_threshold" validate:"gte=0"`
}

// MaxDuration returns the session duration cap.
func (s SessionConfig) MaxDuration() time.Duration {
	return time.Duration(s.MaxDurationSec) * time.Second
}

// SilenceTimeout returns the silence window that ends a session.
func (s SessionConfig) SilenceTimeout() time.Duration {
	return time.Duration(s.SilenceTimeoutSec) * time.Second
}

// Cooldown returns the pause before listening for the wake word again.
func (s SessionConfig) Cooldown() time.Duration {
	return time.Duration(s.CooldownSec) * time.Second
}

// PromptConfig selects the conversation profile.
type PromptConfig struct {
	Profile     string `yaml:"profile"`
	ProfilesDir string `yaml:"profiles_dir"`
}

// RobotConfig tunes movement playback.
type RobotConfig struct {
	// ExpressionSpeed scales choreography tempo; 2.0 plays twice as fast.
	ExpressionSpeed float64 `yaml:"expression_speed" validate:"gt=0"`
}

// CostConfig controls spend tracking.
type CostConfig struct {
	DBPath         string       `yaml:"db_path"`
	DailyBudgetUSD float64      `yaml:"daily_budget_usd" validate:"gte=0"`
	Pricing        cost.Pricing `yaml:"pricing"`
}

// WebConfig controls the status dashboard.
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port" validate:"gt=0,lte=65535"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// Config is the full application configuration.
type Config struct {
	Reachy  ReachyConfig  `yaml:"reachy"`
	Wake    wake.Config   `yaml:"wake"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Session SessionConfig `yaml:"session"`
	Prompt  PromptConfig  `yaml:"prompt"`
	Robot   RobotConfig   `yaml:"robot"`
	Cost    CostConfig    `yaml:"cost"`
	Web     WebConfig     `yaml:"web"`
	Logging LoggingConfig `yaml:"logging"`

	// GoogleAPIKey comes from the GOOGLE_API_KEY environment variable,
	// never from YAML.
	GoogleAPIKey string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Reachy: ReachyConfig{
			RobotIP: "localhost",
		},
		Wake: wake.Config{
			Backend:       "energy",
			Threshold:     0.7,
			RefractorySec: 3,
		},
		Gemini: GeminiConfig{
			Model:            "gemini-2.5-flash-native-audio-preview-12-2025",
			Voice:            "Aoede",
			InputSampleRate:  16000,
			OutputSampleRate: 24000,
		},
		Session: SessionConfig{
			MaxDurationSec:      300,
			SilenceTimeoutSec:   15,
			CooldownSec:         5,
			SilenceRMSThreshold: 200,
		},
		Prompt: PromptConfig{
			Profile:     "default",
			ProfilesDir: "profiles",
		},
		Robot: RobotConfig{
			ExpressionSpeed: 1.0,
		},
		Cost: CostConfig{
			DBPath:         "data/cost.db",
			DailyBudgetUSD: 1.00,
			Pricing:        cost.DefaultPricing(),
		},
		Web: WebConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    7860,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "logs/companion.log",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (optional, "" skips it), then the GOOGLE_API_KEY environment
// variable. The result is validated before being returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// HasAPIKey reports whether an API key was provided.
func (c *Config) HasAPIKey() bool { return c.GoogleAPIKey != "" }
