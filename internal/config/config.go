// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.aster/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Upstream: OpenAI-compatible completion service (model, temperature, max tokens)
//   - Classifier: auxiliary module-classification call settings
//   - Research: external retrieval service for the research tool
//   - Server: HTTP listen address
//   - Observability: OTLP tracing
//
// Security: the upstream API key is never logged and is masked in MarshalJSON.
// Validation: range checks in validation.go with sentinel errors for
// Go-idiomatic checking via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the upstream API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidBaseURL indicates an upstream or research base URL is invalid.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidModelName indicates a model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidTopK indicates the research top_k default is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidTimeout indicates a timeout value is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidHistoryWindow indicates a history window size is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history window")
)

const (
	// DefaultUpstreamBaseURL is the default OpenAI-compatible endpoint.
	DefaultUpstreamBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the default generation model.
	DefaultModel = "gpt-4o"

	// DefaultClassifierModel is the default model for the module classifier.
	// A small model is sufficient: the classifier emits a short JSON array.
	DefaultClassifierModel = "gpt-4o-mini"

	// DefaultClassifierTimeout bounds the auxiliary classification call.
	// Classification is an enhancement; a slow classifier must not stall the turn.
	DefaultClassifierTimeout = 8 * time.Second

	// DefaultResearchTimeout bounds the retrieval service call.
	DefaultResearchTimeout = 15 * time.Second

	// DefaultClassifierHistoryTurns is the history window for classification.
	DefaultClassifierHistoryTurns = 5

	// DefaultModelHistoryTurns is the history window sent to the generation model.
	DefaultModelHistoryTurns = 10
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Upstream completion service
	UpstreamBaseURL string  `mapstructure:"upstream_base_url" json:"upstream_base_url"`
	UpstreamAPIKey  string  `mapstructure:"upstream_api_key" json:"upstream_api_key"` // SENSITIVE: masked in MarshalJSON
	ModelName       string  `mapstructure:"model_name" json:"model_name"`
	Temperature     float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Module classifier (auxiliary completion call)
	ClassifierModel     string        `mapstructure:"classifier_model" json:"classifier_model"`
	ClassifierTimeout   time.Duration `mapstructure:"classifier_timeout" json:"classifier_timeout"`
	ClassifierMaxTokens int           `mapstructure:"classifier_max_tokens" json:"classifier_max_tokens"`

	// Research retrieval service
	ResearchBaseURL string        `mapstructure:"research_base_url" json:"research_base_url"`
	ResearchTimeout time.Duration `mapstructure:"research_timeout" json:"research_timeout"`
	ResearchTopK    int           `mapstructure:"research_top_k" json:"research_top_k"`

	// Tool use: when false no tool signature is advertised to the model.
	ToolUseEnabled bool `mapstructure:"tool_use_enabled" json:"tool_use_enabled"`

	// Conversation history windows
	ClassifierHistoryTurns int `mapstructure:"classifier_history_turns" json:"classifier_history_turns"`
	ModelHistoryTurns      int `mapstructure:"model_history_turns" json:"model_history_turns"`

	// HTTP server
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Observability (OTLP tracing; disabled when endpoint is empty)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".aster")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Fail fast on invalid configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream_base_url", DefaultUpstreamBaseURL)
	v.SetDefault("model_name", DefaultModel)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 2048)

	v.SetDefault("classifier_model", DefaultClassifierModel)
	v.SetDefault("classifier_timeout", DefaultClassifierTimeout)
	v.SetDefault("classifier_max_tokens", 64)

	v.SetDefault("research_base_url", "http://localhost:9100")
	v.SetDefault("research_timeout", DefaultResearchTimeout)
	v.SetDefault("research_top_k", 10)

	v.SetDefault("tool_use_enabled", true)

	v.SetDefault("classifier_history_turns", DefaultClassifierHistoryTurns)
	v.SetDefault("model_history_turns", DefaultModelHistoryTurns)

	v.SetDefault("server_addr", ":8080")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
// Only the secret is environment-only; everything else may also come from the
// config file.
func bindEnvVariables(v *viper.Viper) {
	// ASTER_UPSTREAM_API_KEY is the canonical name; OPENAI_API_KEY is accepted
	// as a fallback for compatibility with standard tooling.
	_ = v.BindEnv("upstream_api_key", "ASTER_UPSTREAM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("upstream_base_url", "ASTER_UPSTREAM_BASE_URL")
	_ = v.BindEnv("research_base_url", "ASTER_RESEARCH_BASE_URL")
	_ = v.BindEnv("server_addr", "ASTER_SERVER_ADDR")
	_ = v.BindEnv("otlp_endpoint", "ASTER_OTLP_ENDPOINT")
}

// MarshalJSON masks sensitive fields so a dumped config never leaks secrets.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.UpstreamAPIKey != "" {
		masked.UpstreamAPIKey = "***"
	}
	return json.Marshal(masked)
}
