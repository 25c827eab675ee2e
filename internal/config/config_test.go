// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "cua-cli", cfg.Logger.ServiceName)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model.Name)
	assert.Equal(t, "https://api.anthropic.com/v1", cfg.Model.BaseURL)
	assert.Equal(t, 4096, cfg.Model.MaxTokens)
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.URI)
	assert.Equal(t, GraphScopeFull, cfg.Graph.Scope)
	assert.Equal(t, 200, cfg.Run.MaxSteps)
	assert.Equal(t, 200*time.Millisecond, cfg.Screen.ActionSettle)
	assert.Equal(t, "./screenshots", cfg.Screen.OutputDir)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("valid defaults", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("max steps must be positive", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Run.MaxSteps = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run.max_steps must be positive")
	})

	t.Run("token budget must be positive", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Model.MaxTokens = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model.max_tokens must be positive")
	})

	t.Run("model name required", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Model.Name = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model.name")
	})

	t.Run("graph scope must be a known strategy", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Graph.Scope = "adaptive"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "graph.scope")

		cfg.Graph.Scope = GraphScopeMatch
		assert.NoError(t, cfg.Validate())
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/agent.log
model:
  api_timeout: 45s
graph:
  uri: bolt://graphhost:7687
  scope: match
screen:
  headless: true
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	err := v.ReadConfig(bytes.NewBufferString(yamlInput))
	require.NoError(t, err)

	var cfg Config
	err = v.Unmarshal(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "/var/log/agent.log", cfg.Logger.LogFile)
	assert.Equal(t, 45*time.Second, cfg.Model.APITimeout)
	assert.Equal(t, "bolt://graphhost:7687", cfg.Graph.URI)
	assert.Equal(t, GraphScopeMatch, cfg.Graph.Scope)
	assert.True(t, cfg.Screen.Headless)
	// Untouched keys keep their defaults.
	assert.Equal(t, 4096, cfg.Model.MaxTokens)
}
