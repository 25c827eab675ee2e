// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Fixed target resolution the whole action protocol is specified against.
// The model's coordinate space, the computer tool definition and the live
// viewport must all agree on these values; Validate and the screen executor
// fail fast on any mismatch.
const (
	DisplayWidth  = 1280
	DisplayHeight = 800
)

// Config holds the entire application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Model  ModelConfig  `mapstructure:"model" yaml:"model"`
	Screen ScreenConfig `mapstructure:"screen" yaml:"screen"`
	Graph  GraphConfig  `mapstructure:"graph" yaml:"graph"`
	Run    RunConfig    `mapstructure:"run" yaml:"run"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ModelConfig defines how the model service is reached. The API key itself is
// never part of the config tree; it is loaded from the key file at startup.
type ModelConfig struct {
	Name       string        `mapstructure:"name" yaml:"name"`
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens  int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// ScreenConfig configures the action executor and its CDP input backend.
type ScreenConfig struct {
	// OutputDir receives one PNG per captured screenshot.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	Headless  bool   `mapstructure:"headless" yaml:"headless"`
	// StartURL is the page the browser target opens on before turn 1.
	StartURL string `mapstructure:"start_url" yaml:"start_url"`
	// ActionSettle is the pause after each input action, giving the UI time
	// to react before the follow-up screenshot.
	ActionSettle time.Duration `mapstructure:"action_settle" yaml:"action_settle"`
	// TypeInterval is the delay between individual keystrokes of a "type"
	// action.
	TypeInterval time.Duration `mapstructure:"type_interval" yaml:"type_interval"`
}

// GraphConfig configures the process-knowledge graph connection. The password
// comes from the password file given on the command line, never from here.
type GraphConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	Username string `mapstructure:"username" yaml:"username"`
	Database string `mapstructure:"database" yaml:"database"`
	// Scope selects the retrieval strategy, fixed for the whole run:
	// "full" linearizes the entire step chain, "match" keeps only steps
	// whose description overlaps the task text.
	Scope        string        `mapstructure:"scope" yaml:"scope"`
	QueryTimeout time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// RunConfig carries per-run loop settings, mostly overridden by flags.
type RunConfig struct {
	MaxSteps  int    `mapstructure:"max_steps" yaml:"max_steps"`
	StepsFile string `mapstructure:"steps_file" yaml:"steps_file"`
}

// GraphScope values accepted by GraphConfig.Scope.
const (
	GraphScopeFull  = "full"
	GraphScopeMatch = "match"
)

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if c.Run.MaxSteps <= 0 {
		return fmt.Errorf("run.max_steps must be positive, got %d", c.Run.MaxSteps)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("model.max_tokens must be positive, got %d", c.Model.MaxTokens)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name must not be empty")
	}
	switch c.Graph.Scope {
	case GraphScopeFull, GraphScopeMatch:
	default:
		return fmt.Errorf("graph.scope must be %q or %q, got %q", GraphScopeFull, GraphScopeMatch, c.Graph.Scope)
	}
	return nil
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "cua-cli")
	v.SetDefault("logger.log_file", "agent.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Model --
	v.SetDefault("model.name", "claude-sonnet-4-20250514")
	v.SetDefault("model.base_url", "https://api.anthropic.com/v1")
	v.SetDefault("model.max_tokens", 4096)
	v.SetDefault("model.api_timeout", "120s")

	// -- Screen --
	v.SetDefault("screen.output_dir", "./screenshots")
	v.SetDefault("screen.headless", false)
	v.SetDefault("screen.start_url", "about:blank")
	v.SetDefault("screen.action_settle", "200ms")
	v.SetDefault("screen.type_interval", "12ms")

	// -- Graph --
	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.username", "neo4j")
	v.SetDefault("graph.database", "")
	v.SetDefault("graph.scope", GraphScopeFull)
	v.SetDefault("graph.query_timeout", "10s")

	// -- Run --
	v.SetDefault("run.max_steps", 200)
	v.SetDefault("run.steps_file", "steps.txt")
}
