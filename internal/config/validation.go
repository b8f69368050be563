package config

import (
	"fmt"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Upstream service. The API key is required for every completion call;
	// a missing key fails the whole run, so fail startup instead.
	if c.UpstreamAPIKey == "" {
		return fmt.Errorf("%w: set ASTER_UPSTREAM_API_KEY (or OPENAI_API_KEY)", ErrMissingAPIKey)
	}
	if !strings.HasPrefix(c.UpstreamBaseURL, "http://") && !strings.HasPrefix(c.UpstreamBaseURL, "https://") {
		return fmt.Errorf("%w: upstream_base_url must start with http:// or https://, got %q",
			ErrInvalidBaseURL, c.UpstreamBaseURL)
	}
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 2.0
	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 128000 {
		return fmt.Errorf("%w: must be between 1 and 128,000, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// Classifier
	if c.ClassifierModel == "" {
		return fmt.Errorf("%w: classifier_model cannot be empty", ErrInvalidModelName)
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("%w: classifier_timeout must be positive, got %s", ErrInvalidTimeout, c.ClassifierTimeout)
	}
	if c.ClassifierMaxTokens < 1 || c.ClassifierMaxTokens > 1024 {
		return fmt.Errorf("%w: classifier_max_tokens must be between 1 and 1024, got %d",
			ErrInvalidMaxTokens, c.ClassifierMaxTokens)
	}

	// Research service
	if !strings.HasPrefix(c.ResearchBaseURL, "http://") && !strings.HasPrefix(c.ResearchBaseURL, "https://") {
		return fmt.Errorf("%w: research_base_url must start with http:// or https://, got %q",
			ErrInvalidBaseURL, c.ResearchBaseURL)
	}
	if c.ResearchTimeout <= 0 {
		return fmt.Errorf("%w: research_timeout must be positive, got %s", ErrInvalidTimeout, c.ResearchTimeout)
	}
	if c.ResearchTopK < 1 || c.ResearchTopK > 50 {
		return fmt.Errorf("%w: research_top_k must be between 1 and 50, got %d", ErrInvalidTopK, c.ResearchTopK)
	}

	// History windows
	if c.ClassifierHistoryTurns < 0 || c.ClassifierHistoryTurns > 50 {
		return fmt.Errorf("%w: classifier_history_turns must be between 0 and 50, got %d",
			ErrInvalidHistoryWindow, c.ClassifierHistoryTurns)
	}
	if c.ModelHistoryTurns < 0 || c.ModelHistoryTurns > 100 {
		return fmt.Errorf("%w: model_history_turns must be between 0 and 100, got %d",
			ErrInvalidHistoryWindow, c.ModelHistoryTurns)
	}

	return nil
}
