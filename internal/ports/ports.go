// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// The application services in internal/application depend only on these
// contracts. Adapters in internal/infrastructure implement them for the
// Ollama and OpenAI-compatible inference servers, the terminal, the
// in-memory history and the embedded template catalog.
package ports

import (
	"context"

	"github.com/doeshing/strike-go/internal/domain"
)

// ConfigProvider loads the latest configuration.
// Implementations typically read from ~/.strike/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ContextCollector gathers environment facts (OS, shell, installed tools)
// that are injected into the command prompt.
type ContextCollector interface {
	Collect(context.Context) (domain.ContextSnapshot, error)
}

// ProviderFactory builds a provider for the session's endpoint and model.
type ProviderFactory interface {
	ForSession(domain.SessionConfig) (Provider, error)
}

// ChunkHandler receives streamed text fragments in arrival order.
type ChunkHandler func(chunk string) error

// Provider wraps one inference server API.
type Provider interface {
	Name() string
	// Ping checks that the server answers at all.
	Ping(context.Context) error
	// ListModels returns the names of installed models.
	ListModels(context.Context) ([]string, error)
	// Generate returns the complete reply in one piece.
	Generate(context.Context, ProviderRequest) (string, error)
	// Stream delivers the reply chunk by chunk and returns the concatenation.
	Stream(context.Context, ProviderRequest, ChunkHandler) (string, error)
}

// ModelPuller is implemented by providers that can download models.
type ModelPuller interface {
	Pull(ctx context.Context, model string, progress func(domain.PullProgress)) error
}

// ProviderRequest carries one prompt and its sampling parameters.
type ProviderRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// PromptBuilder renders the three prompt kinds sent to the model.
type PromptBuilder interface {
	CommandPrompt(request string, history []domain.Exchange, snapshot domain.ContextSnapshot) (domain.Prompt, error)
	ExplainPrompt(command string) (domain.Prompt, error)
	InterpretPrompt(exchange domain.Exchange) (domain.Prompt, error)
}

// ResponseParser extracts a command and explanation from a model reply.
type ResponseParser interface {
	Parse(reply string) domain.Extraction
}

// HistoryRepository stores completed exchanges in append order.
type HistoryRepository interface {
	Append(context.Context, domain.Exchange) error
	All() []domain.Exchange
	Recent(n int) []domain.Exchange
	Len() int
}

// TemplateCatalog serves the static example commands.
type TemplateCatalog interface {
	All() []domain.Template
	Categories() []domain.TemplateCategory
	Search(query string) []domain.Template
}

// SecurityService evaluates commands against guardrail rules.
type SecurityService interface {
	Evaluate(command string) (domain.RiskAssessment, error)
}

// CommandSimulator produces a placeholder result for a command without running it.
type CommandSimulator interface {
	Simulate(ctx context.Context, command string) (domain.SimulationResult, error)
}

// StreamWriter displays streamed chunks as they arrive.
type StreamWriter interface {
	WriteChunk(chunk string) error
	Done() error
}

// Clipboard provides clipboard integration for copying commands.
type Clipboard interface {
	Copy(text string) error
	Enabled() bool
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
