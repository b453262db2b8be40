// Package domain defines core entities and value objects for strike.
//
// This file contains the inference provider kinds and the recommended model
// table shown by the model selection menu. The domain layer is independent of
// infrastructure concerns.
package domain

import "strings"

// ProviderKind identifies the API flavour spoken by the inference server.
type ProviderKind string

const (
	// ProviderKindOllama speaks the native Ollama API (/api/generate, /api/tags).
	ProviderKindOllama ProviderKind = "ollama"
	// ProviderKindOpenAI speaks the OpenAI chat completions API (llama.cpp, LM Studio, Ollama /v1).
	ProviderKindOpenAI ProviderKind = "openai"
)

// ModelInfo describes a model offered in the selection menu.
type ModelInfo struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Size        string `yaml:"size"`
}

// RecommendedModels returns the built-in list of models suited to security tasks.
func RecommendedModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:        "gemma3:12b",
			Description: "Google's Gemma 3 12B model, good general performance for security tasks",
			Size:        "12B",
		},
		{
			Name:        "deepseek-coder:6.7b",
			Description: "Model focused on code analysis and generation, useful for exploit development",
			Size:        "6.7B",
		},
		{
			Name:        "deepseek-r1:8b",
			Description: "Lightweight yet powerful reasoning model for security analysis",
			Size:        "8B",
		},
		{
			Name:        "llama3:8b",
			Description: "Meta's Llama 3 8B model, good balance of performance and resource usage",
			Size:        "8B",
		},
		{
			Name:        "phi3:14b",
			Description: "Microsoft's Phi-3 large model, excellent for complex security reasoning",
			Size:        "14B",
		},
		{
			Name:        "mixtral:8x7b",
			Description: "Mistral AI's mixture of experts model, very strong on complex security tasks",
			Size:        "8x7B",
		},
	}
}

// PullProgress reports model download progress from the inference server.
type PullProgress struct {
	Status    string
	Completed int64
	Total     int64
}

// Percent returns the completed fraction in percent, or -1 when unknown.
func (p PullProgress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	return int(p.Completed * 100 / p.Total)
}

// ModelInstalled reports whether wanted appears in installed. A name without
// a tag matches its ":latest" variant, as Ollama lists it that way.
func ModelInstalled(installed []string, wanted string) bool {
	wanted = strings.TrimSpace(wanted)
	if wanted == "" {
		return false
	}
	for _, name := range installed {
		if name == wanted {
			return true
		}
		if !strings.Contains(wanted, ":") && name == wanted+":latest" {
			return true
		}
	}
	return false
}
