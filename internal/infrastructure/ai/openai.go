package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// localAPIKey is sent when no key is configured; local servers ignore it.
const localAPIKey = "strike-local"

// openAIProvider talks to OpenAI-compatible local servers (llama.cpp,
// LM Studio, Ollama /v1).
type openAIProvider struct {
	client   openai.Client
	endpoint string
}

func newOpenAIProvider(endpoint string, apiKeyEnv string, httpClient *http.Client) *openAIProvider {
	apiKey := valueOrDefault(resolveAuth(apiKeyEnv, "OPENAI_API_KEY"), localAPIKey)
	client := openai.NewClient(
		option.WithBaseURL(strings.TrimRight(endpoint, "/")+"/"),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return &openAIProvider{
		client:   client,
		endpoint: endpoint,
	}
}

func (p *openAIProvider) Name() string {
	return string(domain.ProviderKindOpenAI)
}

func (p *openAIProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, domain.DefaultPingTimeout)
	defer cancel()

	if _, err := p.client.Models.List(ctx); err != nil {
		return pingError(p.endpoint, p.wrap("", err))
	}
	return nil
}

func (p *openAIProvider) ListModels(ctx context.Context) ([]string, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", p.wrap("", err))
	}
	names := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

func (p *openAIProvider) Generate(ctx context.Context, req ports.ProviderRequest) (string, error) {
	completion, err := p.client.Chat.Completions.New(ctx, p.params(req))
	if err != nil {
		return "", p.wrap(req.Model, err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (p *openAIProvider) Stream(ctx context.Context, req ports.ProviderRequest, handler ports.ChunkHandler) (string, error) {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(req))
	defer stream.Close()

	var out strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		out.WriteString(content)
		if handler != nil {
			if err := handler(content); err != nil {
				return out.String(), err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return out.String(), p.wrap(req.Model, err)
	}
	return out.String(), nil
}

func (p *openAIProvider) params(req ports.ProviderRequest) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(domain.ClampTemperature(req.Temperature)),
		TopP:        openai.Float(domain.DefaultTopP),
		MaxTokens:   openai.Int(int64(valueOrDefaultInt(req.MaxTokens, domain.DefaultMaxTokens))),
	}
}

func (p *openAIProvider) wrap(model string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound && model != "" {
			return fmt.Errorf("%w: %s", domain.ErrModelUnavailable, model)
		}
		return fmt.Errorf("openai-compatible server: %w", apiErr)
	}
	return wrapTransportError(p.endpoint, err)
}

var _ ports.Provider = (*openAIProvider)(nil)
