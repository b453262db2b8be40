package ai

import (
	"fmt"
	"net/http"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// Factory builds providers for a session. The shared HTTP client has no
// overall timeout because streamed replies may run long; callers bound
// non-streamed calls with a context deadline instead.
type Factory struct {
	httpClient *http.Client
	apiKeyEnv  string
}

// NewFactory creates a provider factory. apiKeyEnv names the environment
// variable holding a key for OpenAI-compatible servers that require one.
func NewFactory(apiKeyEnv string) *Factory {
	return &Factory{
		httpClient: &http.Client{},
		apiKeyEnv:  apiKeyEnv,
	}
}

// ForSession returns the provider matching the session's provider kind,
// inferring it from the endpoint when unset.
func (f *Factory) ForSession(session domain.SessionConfig) (ports.Provider, error) {
	endpoint := valueOrDefault(session.Endpoint, domain.DefaultEndpoint)
	kind := session.Provider
	if kind == "" {
		kind = domain.InferProviderKind(endpoint)
	}

	switch kind {
	case domain.ProviderKindOllama:
		provider, err := newOllamaProvider(endpoint, f.httpClient)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case domain.ProviderKindOpenAI:
		return newOpenAIProvider(endpoint, f.apiKeyEnv, f.httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", kind)
	}
}

var _ ports.ProviderFactory = (*Factory)(nil)
