package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fanforge/fanforge-go/internal/logger"
)

// Config holds all application configuration.
type Config struct {
	// API settings
	BaseURL         string
	APIKey          string
	APIReadyTimeout int

	// Tracking settings
	PollInterval    time.Duration
	EscalationAfter time.Duration
	HardCeiling     time.Duration
	RetryBudget     int

	// Submission limits
	MaxAttachmentBytes int64
	MinInstructionLen  int
	MaxInstructionLen  int
}

// NewConfig creates a new configuration with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:            "https://api.fanforge.app",
		APIReadyTimeout:    30,
		PollInterval:       3 * time.Second,
		EscalationAfter:    30 * time.Second,
		HardCeiling:        10 * time.Minute,
		RetryBudget:        5,
		MaxAttachmentBytes: 200 << 20,
		MinInstructionLen:  10,
		MaxInstructionLen:  500,
	}
}

// loadDotEnv merges .env files into the process environment so viper's
// AutomaticEnv picks them up. The working directory is tried first, then
// the directory holding the binary.
func loadDotEnv() {
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded .env from working directory")
	}

	execPath, err := os.Executable()
	if err != nil {
		return
	}
	envPath := filepath.Join(filepath.Dir(execPath), ".env")
	if err := godotenv.Load(envPath); err == nil {
		logger.Debug("Loaded .env from %s", filepath.Dir(execPath))
	}
}

// Load builds a Config from defaults, an optional fanforge.yaml,
// .env files and FANFORGE_* environment variables, in increasing
// order of precedence.
func Load() (*Config, error) {
	loadDotEnv()

	defaults := NewConfig()

	v := viper.New()
	v.SetDefault("api.base_url", defaults.BaseURL)
	v.SetDefault("api.key", "")
	v.SetDefault("api.ready_timeout", defaults.APIReadyTimeout)
	v.SetDefault("track.poll_interval", defaults.PollInterval)
	v.SetDefault("track.escalation_after", defaults.EscalationAfter)
	v.SetDefault("track.hard_ceiling", defaults.HardCeiling)
	v.SetDefault("track.retry_budget", defaults.RetryBudget)
	v.SetDefault("submit.max_attachment_bytes", defaults.MaxAttachmentBytes)
	v.SetDefault("submit.min_instruction_len", defaults.MinInstructionLen)
	v.SetDefault("submit.max_instruction_len", defaults.MaxInstructionLen)

	v.SetConfigName("fanforge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.fanforge")

	v.SetEnvPrefix("FANFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		BaseURL:            v.GetString("api.base_url"),
		APIKey:             v.GetString("api.key"),
		APIReadyTimeout:    v.GetInt("api.ready_timeout"),
		PollInterval:       v.GetDuration("track.poll_interval"),
		EscalationAfter:    v.GetDuration("track.escalation_after"),
		HardCeiling:        v.GetDuration("track.hard_ceiling"),
		RetryBudget:        v.GetInt("track.retry_budget"),
		MaxAttachmentBytes: v.GetInt64("submit.max_attachment_bytes"),
		MinInstructionLen:  v.GetInt("submit.min_instruction_len"),
		MaxInstructionLen:  v.GetInt("submit.max_instruction_len"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	if c.APIReadyTimeout <= 0 {
		return fmt.Errorf("API ready timeout must be positive, got: %d", c.APIReadyTimeout)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got: %s", c.PollInterval)
	}

	if c.EscalationAfter <= 0 {
		return fmt.Errorf("escalation threshold must be positive, got: %s", c.EscalationAfter)
	}

	if c.HardCeiling <= c.EscalationAfter {
		return fmt.Errorf("hard ceiling (%s) must exceed the escalation threshold (%s)",
			c.HardCeiling, c.EscalationAfter)
	}

	if c.RetryBudget < 0 {
		return fmt.Errorf("retry budget must be non-negative, got: %d", c.RetryBudget)
	}

	if c.MaxAttachmentBytes <= 0 {
		return fmt.Errorf("max attachment size must be positive, got: %d", c.MaxAttachmentBytes)
	}

	if c.MinInstructionLen <= 0 {
		return fmt.Errorf("min instruction length must be positive, got: %d", c.MinInstructionLen)
	}

	if c.MaxInstructionLen <= c.MinInstructionLen {
		return fmt.Errorf("max instruction length (%d) must exceed the minimum (%d)",
			c.MaxInstructionLen, c.MinInstructionLen)
	}

	return nil
}
