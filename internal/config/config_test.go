package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanforge/fanforge-go/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestNewConfigDefaultsAreValid(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.EscalationAfter)
	assert.Equal(t, 10*time.Minute, cfg.HardCeiling)
	assert.Equal(t, int64(200<<20), cfg.MaxAttachmentBytes)
	assert.Equal(t, 10, cfg.MinInstructionLen)
	assert.Equal(t, 500, cfg.MaxInstructionLen)
}

func TestLoadReadsDotEnvFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	envFile := []byte("FANFORGE_API_KEY=env-file-key\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), envFile, 0o600))
	t.Chdir(dir)
	defer os.Unsetenv("FANFORGE_API_KEY")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-file-key", cfg.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base URL", func(c *Config) { c.BaseURL = "" }},
		{"zero ready timeout", func(c *Config) { c.APIReadyTimeout = 0 }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero escalation", func(c *Config) { c.EscalationAfter = 0 }},
		{"ceiling below escalation", func(c *Config) { c.HardCeiling = c.EscalationAfter / 2 }},
		{"negative retry budget", func(c *Config) { c.RetryBudget = -1 }},
		{"zero attachment limit", func(c *Config) { c.MaxAttachmentBytes = 0 }},
		{"zero min instruction length", func(c *Config) { c.MinInstructionLen = 0 }},
		{"max instruction below min", func(c *Config) { c.MaxInstructionLen = c.MinInstructionLen }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
