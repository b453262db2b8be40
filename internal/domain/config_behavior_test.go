package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/strike-go/internal/domain"
)

// TestConfig_Session tests the defaults applied when fields are empty
func TestConfig_Session(t *testing.T) {
	tests := []struct {
		name   string
		config domain.Config
		want   domain.SessionConfig
	}{
		{
			name:   "empty config falls back to built-in defaults",
			config: domain.Config{},
			want: domain.SessionConfig{
				Model:    domain.DefaultModelName,
				Endpoint: domain.DefaultEndpoint,
				Provider: domain.ProviderKindOllama,
			},
		},
		{
			name: "openai kind inferred from /v1 endpoint",
			config: domain.Config{
				Preferences: domain.Preferences{DefaultModel: "llama3:8b"},
				Provider:    domain.ProviderSettings{Endpoint: "http://127.0.0.1:8080/v1/"},
			},
			want: domain.SessionConfig{
				Model:    "llama3:8b",
				Endpoint: "http://127.0.0.1:8080/v1",
				Provider: domain.ProviderKindOpenAI,
			},
		},
		{
			name: "explicit kind wins over inference",
			config: domain.Config{
				Provider: domain.ProviderSettings{Kind: "OpenAI", Endpoint: "http://localhost:11434"},
			},
			want: domain.SessionConfig{
				Model:    domain.DefaultModelName,
				Endpoint: "http://localhost:11434",
				Provider: domain.ProviderKindOpenAI,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.config.Session()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Session() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestConfig_GetTemperature tests clamping into [0, 1]
func TestConfig_GetTemperature(t *testing.T) {
	tests := []struct {
		value float64
		want  float64
	}{
		{value: -0.5, want: 0},
		{value: 0, want: 0},
		{value: 0.7, want: 0.7},
		{value: 1, want: 1},
		{value: 1.8, want: 1},
	}

	for _, tt := range tests {
		cfg := domain.Config{Preferences: domain.Preferences{Temperature: tt.value}}
		if got := cfg.GetTemperature(); got != tt.want {
			t.Errorf("GetTemperature(%v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

// TestConfig_Limits tests timeout, token and window defaults
func TestConfig_Limits(t *testing.T) {
	var cfg domain.Config
	if got := cfg.GetTimeout(); got != domain.DefaultRequestTimeout {
		t.Errorf("GetTimeout() = %v, want %v", got, domain.DefaultRequestTimeout)
	}
	if got := cfg.GetMaxTokens(); got != domain.DefaultMaxTokens {
		t.Errorf("GetMaxTokens() = %d, want %d", got, domain.DefaultMaxTokens)
	}
	if got := cfg.GetHistoryWindow(); got != domain.DefaultHistoryWindow {
		t.Errorf("GetHistoryWindow() = %d, want %d", got, domain.DefaultHistoryWindow)
	}

	cfg.Preferences.TimeoutSeconds = 30
	cfg.Preferences.HistoryWindow = -1
	if got := cfg.GetTimeout(); got != 30*time.Second {
		t.Errorf("GetTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetHistoryWindow(); got != 0 {
		t.Errorf("negative window should disable history replay, got %d", got)
	}
}

// TestConfig_ValidateConsistency tests configuration validation
func TestConfig_ValidateConsistency(t *testing.T) {
	tests := []struct {
		name      string
		config    domain.Config
		wantError bool
	}{
		{
			name:   "defaults are valid",
			config: domain.Config{Preferences: domain.Preferences{Temperature: 0.7}},
		},
		{
			name:      "unknown provider kind",
			config:    domain.Config{Provider: domain.ProviderSettings{Kind: "anthropic"}},
			wantError: true,
		},
		{
			name:      "non-http endpoint",
			config:    domain.Config{Provider: domain.ProviderSettings{Endpoint: "unix:///tmp/ollama.sock"}},
			wantError: true,
		},
		{
			name:      "temperature out of range",
			config:    domain.Config{Preferences: domain.Preferences{Temperature: 1.5}},
			wantError: true,
		},
		{
			name: "duplicate model entries",
			config: domain.Config{Models: []domain.ModelInfo{
				{Name: "llama3:8b"},
				{Name: "llama3:8b"},
			}},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.ValidateConsistency()
			if tt.wantError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestConfig_RecommendedModels tests the built-in model table fallback
func TestConfig_RecommendedModels(t *testing.T) {
	var cfg domain.Config
	models := cfg.RecommendedModels()
	if len(models) == 0 || models[0].Name != domain.DefaultModelName {
		t.Fatalf("expected built-in table headed by %s, got %+v", domain.DefaultModelName, models)
	}
	if models[len(models)-1].Name != "mixtral:8x7b" {
		t.Errorf("expected mixtral:8x7b last, got %+v", models[len(models)-1])
	}

	cfg.Models = []domain.ModelInfo{{Name: "custom:1b"}}
	if got := cfg.RecommendedModels(); len(got) != 1 || got[0].Name != "custom:1b" {
		t.Errorf("configured models should replace the table, got %+v", got)
	}
}

func TestSessionConfig_WithModel(t *testing.T) {
	base := domain.SessionConfig{Model: "gemma3:12b", Endpoint: domain.DefaultEndpoint, Provider: domain.ProviderKindOllama}
	next := base.WithModel("  llama3:8b ")

	if base.Model != "gemma3:12b" {
		t.Errorf("WithModel mutated receiver: %s", base.Model)
	}
	want := domain.SessionConfig{Model: "llama3:8b", Endpoint: domain.DefaultEndpoint, Provider: domain.ProviderKindOllama}
	if diff := cmp.Diff(want, next); diff != "" {
		t.Errorf("WithModel mismatch (-want +got):\n%s", diff)
	}
}

func TestExtraction_Err(t *testing.T) {
	if err := (domain.Extraction{}).Err(); !errors.Is(err, domain.ErrNoCommand) {
		t.Errorf("expected ErrNoCommand, got %v", err)
	}
	if err := (domain.Extraction{Command: "id", Found: true}).Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPullProgress_Percent(t *testing.T) {
	if got := (domain.PullProgress{Completed: 5}).Percent(); got != -1 {
		t.Errorf("unknown total should report -1, got %d", got)
	}
	if got := (domain.PullProgress{Completed: 50, Total: 200}).Percent(); got != 25 {
		t.Errorf("Percent() = %d, want 25", got)
	}
}

func TestModelInstalled(t *testing.T) {
	installed := []string{"gemma3:12b", "llama3:latest"}
	tests := []struct {
		name string
		want bool
	}{
		{"gemma3:12b", true},
		{" gemma3:12b ", true},
		{"llama3", true},
		{"llama3:8b", false},
		{"gemma3", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := domain.ModelInstalled(installed, tt.name); got != tt.want {
			t.Errorf("ModelInstalled(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
