package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// ollamaProvider talks to the native Ollama API.
type ollamaProvider struct {
	client   *api.Client
	endpoint string
}

func newOllamaProvider(endpoint string, httpClient *http.Client) (*ollamaProvider, error) {
	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	return &ollamaProvider{
		client:   api.NewClient(parsedURL, httpClient),
		endpoint: endpoint,
	}, nil
}

func (o *ollamaProvider) Name() string {
	return string(domain.ProviderKindOllama)
}

func (o *ollamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, domain.DefaultPingTimeout)
	defer cancel()

	if _, err := o.client.List(ctx); err != nil {
		return pingError(o.endpoint, o.wrap("", err))
	}
	return nil
}

func (o *ollamaProvider) ListModels(ctx context.Context) ([]string, error) {
	resp, err := o.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", o.wrap("", err))
	}
	names := make([]string, 0, len(resp.Models))
	for _, model := range resp.Models {
		names = append(names, model.Name)
	}
	return names, nil
}

func (o *ollamaProvider) Generate(ctx context.Context, req ports.ProviderRequest) (string, error) {
	var out strings.Builder
	err := o.client.Generate(ctx, o.request(req, false), func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", o.wrap(req.Model, err)
	}
	return out.String(), nil
}

func (o *ollamaProvider) Stream(ctx context.Context, req ports.ProviderRequest, handler ports.ChunkHandler) (string, error) {
	var out strings.Builder
	err := o.client.Generate(ctx, o.request(req, true), func(resp api.GenerateResponse) error {
		if resp.Response == "" {
			return nil
		}
		out.WriteString(resp.Response)
		if handler != nil {
			return handler(resp.Response)
		}
		return nil
	})
	if err != nil {
		return out.String(), o.wrap(req.Model, err)
	}
	return out.String(), nil
}

// Pull downloads a model, reporting progress as the server sends it.
func (o *ollamaProvider) Pull(ctx context.Context, model string, progress func(domain.PullProgress)) error {
	err := o.client.Pull(ctx, &api.PullRequest{Model: model}, func(resp api.ProgressResponse) error {
		if progress != nil {
			progress(domain.PullProgress{
				Status:    resp.Status,
				Completed: resp.Completed,
				Total:     resp.Total,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("pull %s: %w", model, o.wrap(model, err))
	}
	return nil
}

func (o *ollamaProvider) request(req ports.ProviderRequest, stream bool) *api.GenerateRequest {
	return &api.GenerateRequest{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: &stream,
		Options: map[string]any{
			"temperature": domain.ClampTemperature(req.Temperature),
			"top_p":       domain.DefaultTopP,
			"num_predict": valueOrDefaultInt(req.MaxTokens, domain.DefaultMaxTokens),
		},
	}
}

func (o *ollamaProvider) wrap(model string, err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusNotFound && model != "" {
			return fmt.Errorf("%w: %s: %s", domain.ErrModelUnavailable, model, statusErr.ErrorMessage)
		}
		return fmt.Errorf("ollama: %w", statusErr)
	}
	return wrapTransportError(o.endpoint, err)
}

var (
	_ ports.Provider    = (*ollamaProvider)(nil)
	_ ports.ModelPuller = (*ollamaProvider)(nil)
)
