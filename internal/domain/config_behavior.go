package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Session returns the session config the process starts with.
func (c *Config) Session() SessionConfig {
	return SessionConfig{
		Model:    c.GetDefaultModel(),
		Endpoint: c.GetEndpoint(),
		Provider: c.GetProviderKind(),
	}
}

// GetDefaultModel returns the configured default model or the built-in one.
func (c *Config) GetDefaultModel() string {
	if model := strings.TrimSpace(c.Preferences.DefaultModel); model != "" {
		return model
	}
	return DefaultModelName
}

// GetEndpoint returns the inference server base URL.
func (c *Config) GetEndpoint() string {
	if endpoint := strings.TrimSpace(c.Provider.Endpoint); endpoint != "" {
		return strings.TrimRight(endpoint, "/")
	}
	return DefaultEndpoint
}

// GetProviderKind returns the explicit provider kind, inferring it from the
// endpoint when unset.
func (c *Config) GetProviderKind() ProviderKind {
	if c.Provider.Kind != "" {
		return ProviderKind(strings.ToLower(string(c.Provider.Kind)))
	}
	return InferProviderKind(c.GetEndpoint())
}

// GetTemperature returns the sampling temperature clamped to [0, 1].
func (c *Config) GetTemperature() float64 {
	return ClampTemperature(c.Preferences.Temperature)
}

// GetMaxTokens returns the generated-token cap per request.
func (c *Config) GetMaxTokens() int {
	if c.Preferences.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.Preferences.MaxTokens
}

// GetTimeout bounds non-streamed requests.
func (c *Config) GetTimeout() time.Duration {
	if c.Preferences.TimeoutSeconds <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(c.Preferences.TimeoutSeconds) * time.Second
}

// GetHistoryWindow returns how many prior exchanges are replayed into prompts.
func (c *Config) GetHistoryWindow() int {
	if c.Preferences.HistoryWindow < 0 {
		return 0
	}
	if c.Preferences.HistoryWindow == 0 {
		return DefaultHistoryWindow
	}
	return c.Preferences.HistoryWindow
}

// StreamingEnabled reports whether suggestions and explanations stream.
func (c *Config) StreamingEnabled() bool {
	return c.Preferences.Stream
}

// IsSecurityEnabled checks if guardrail evaluation is enabled.
func (c *Config) IsSecurityEnabled() bool {
	return c.Security.Enabled
}

// RecommendedModels returns the configured model table, or the built-in one.
func (c *Config) RecommendedModels() []ModelInfo {
	if len(c.Models) == 0 {
		return RecommendedModels()
	}
	models := make([]ModelInfo, len(c.Models))
	copy(models, c.Models)
	return models
}

// ValidateConsistency checks the internal consistency of the configuration.
func (c *Config) ValidateConsistency() error {
	switch c.GetProviderKind() {
	case ProviderKindOllama, ProviderKindOpenAI:
	default:
		return fmt.Errorf("unsupported provider kind %q", c.Provider.Kind)
	}

	parsed, err := url.Parse(c.GetEndpoint())
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", c.GetEndpoint(), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", c.GetEndpoint())
	}

	if c.Preferences.Temperature < 0 || c.Preferences.Temperature > 1 {
		return fmt.Errorf("temperature %.2f out of range [0, 1]", c.Preferences.Temperature)
	}

	seen := make(map[string]bool, len(c.Models))
	for _, model := range c.Models {
		if strings.TrimSpace(model.Name) == "" {
			return fmt.Errorf("model entry without a name")
		}
		if seen[model.Name] {
			return fmt.Errorf("model %s listed twice", model.Name)
		}
		seen[model.Name] = true
	}
	return nil
}

// ClampTemperature keeps a temperature inside [0, 1].
func ClampTemperature(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}

// InferProviderKind guesses the API flavour from the endpoint.
// OpenAI-compatible servers are addressed through their /v1 prefix.
func InferProviderKind(endpoint string) ProviderKind {
	parsed, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return ProviderKindOllama
	}
	if strings.HasSuffix(parsed.Path, "/v1") {
		return ProviderKindOpenAI
	}
	return ProviderKindOllama
}
