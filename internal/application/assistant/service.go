// Package assistant orchestrates one turn of the interactive session:
// prompt, model call, parse, guardrail, simulated execution and history.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// Options are the per-session generation settings.
type Options struct {
	Stream        bool
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
	HistoryWindow int
}

// Service orchestrates the request lifecycle end-to-end. Dependencies are
// set by the container; call UseSession before anything else.
type Service struct {
	ProviderFactory  ports.ProviderFactory
	PromptBuilder    ports.PromptBuilder
	Parser           ports.ResponseParser
	HistoryStore     ports.HistoryRepository
	SecurityService  ports.SecurityService
	Simulator        ports.CommandSimulator
	ContextCollector ports.ContextCollector
	Logger           ports.Logger
	Options          Options

	// Clock and NewID default to time.Now and uuid.NewString.
	Clock func() time.Time
	NewID func() string

	mu       sync.Mutex
	session  domain.SessionConfig
	provider ports.Provider
	snapshot *domain.ContextSnapshot
}

// UseSession binds the service to an endpoint and model.
func (s *Service) UseSession(session domain.SessionConfig) error {
	if s.ProviderFactory == nil || s.PromptBuilder == nil || s.Parser == nil ||
		s.HistoryStore == nil || s.Simulator == nil || s.Logger == nil {
		return errors.New("assistant.Service dependencies not satisfied")
	}
	provider, err := s.ProviderFactory.ForSession(session)
	if err != nil {
		return fmt.Errorf("provider init: %w", err)
	}

	s.mu.Lock()
	s.session = session
	s.provider = provider
	s.mu.Unlock()

	s.Logger.Debug("session ready", map[string]interface{}{
		"provider": provider.Name(),
		"endpoint": session.Endpoint,
		"model":    session.Model,
	})
	return nil
}

// Session returns the current connection state.
func (s *Service) Session() domain.SessionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// History returns every recorded exchange, oldest first.
func (s *Service) History() []domain.Exchange {
	return s.HistoryStore.All()
}

// Suggest turns a natural-language request into a suggestion. A reply without
// a recognisable command yields a suggestion with Found unset rather than an
// error. When streaming is enabled chunks are forwarded to writer.
func (s *Service) Suggest(ctx context.Context, request string, writer ports.StreamWriter) (domain.Suggestion, error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return domain.Suggestion{}, domain.ErrEmptyPrompt
	}

	prompt, err := s.PromptBuilder.CommandPrompt(request, s.HistoryStore.Recent(s.Options.HistoryWindow), s.environment(ctx))
	if err != nil {
		return domain.Suggestion{}, fmt.Errorf("build prompt: %w", err)
	}

	session := s.Session()
	raw, elapsed, err := s.complete(ctx, prompt, writer)
	if err != nil {
		return domain.Suggestion{}, err
	}

	extraction := s.Parser.Parse(raw)
	suggestion := domain.Suggestion{
		ID:          s.newID(),
		Prompt:      request,
		Model:       session.Model,
		Raw:         raw,
		Command:     extraction.Command,
		Explanation: extraction.Explanation,
		Found:       extraction.Found,
		Elapsed:     elapsed,
	}

	if err := extraction.Err(); err != nil {
		s.Logger.Info("no command in reply", map[string]interface{}{
			"model":  session.Model,
			"reason": err.Error(),
		})
		return suggestion, nil
	}

	if s.SecurityService != nil {
		risk, err := s.SecurityService.Evaluate(extraction.Command)
		if err != nil {
			return suggestion, fmt.Errorf("security evaluate: %w", err)
		}
		suggestion.Risk = risk
	}

	s.Logger.Debug("suggestion parsed", map[string]interface{}{
		"model":   session.Model,
		"command": suggestion.Command,
		"risk":    string(suggestion.Risk.Level),
		"elapsed": elapsed.String(),
	})
	return suggestion, nil
}

// Explain asks the model for a breakdown of command.
func (s *Service) Explain(ctx context.Context, command string, writer ports.StreamWriter) (string, error) {
	prompt, err := s.PromptBuilder.ExplainPrompt(command)
	if err != nil {
		return "", err
	}
	text, _, err := s.complete(ctx, prompt, writer)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Execute simulates the suggested command. Commands the guardrail blocks are
// refused with ErrBlocked.
func (s *Service) Execute(ctx context.Context, suggestion domain.Suggestion) (domain.SimulationResult, error) {
	if !suggestion.Found || strings.TrimSpace(suggestion.Command) == "" {
		return domain.SimulationResult{}, domain.ErrNoCommand
	}
	if suggestion.Risk.Action == domain.ActionBlock {
		return domain.SimulationResult{}, fmt.Errorf("%w: %s", domain.ErrBlocked, strings.Join(suggestion.Risk.Reasons, "; "))
	}

	result, err := s.Simulator.Simulate(ctx, suggestion.Command)
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("simulate: %w", err)
	}
	s.Logger.Debug("command simulated", map[string]interface{}{"command": result.Command})
	return result, nil
}

// Interpret asks the model to analyse the result attached to exchange.
func (s *Service) Interpret(ctx context.Context, exchange domain.Exchange, writer ports.StreamWriter) (string, error) {
	prompt, err := s.PromptBuilder.InterpretPrompt(exchange)
	if err != nil {
		return "", err
	}
	text, _, err := s.complete(ctx, prompt, writer)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Record appends the turn's exchange to history. It is called once per
// completed turn; result is empty when the command was not executed. A
// failed archive write is logged and the session carries on.
func (s *Service) Record(ctx context.Context, suggestion domain.Suggestion, result string) (domain.Exchange, error) {
	if suggestion.ID == "" {
		suggestion.ID = s.newID()
	}
	exchange := suggestion.Exchange(result, s.now())
	err := s.HistoryStore.Append(ctx, exchange)
	if errors.Is(err, domain.ErrArchiveWrite) {
		s.Logger.Warn("exchange not archived", map[string]interface{}{
			"id":    exchange.ID,
			"error": err.Error(),
		})
		return exchange, nil
	}
	if err != nil {
		return exchange, fmt.Errorf("record exchange: %w", err)
	}
	return exchange, nil
}

// SwitchModel changes the model used for subsequent requests. A model the
// server does not list is rejected with ErrModelUnavailable unless force is
// set. History is never touched.
func (s *Service) SwitchModel(ctx context.Context, name string, force bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("model name is empty")
	}

	installed, err := s.InstalledModels(ctx)
	if err != nil && !force {
		return err
	}
	if err == nil && !domain.ModelInstalled(installed, name) && !force {
		return fmt.Errorf("%w: %s", domain.ErrModelUnavailable, name)
	}

	s.mu.Lock()
	previous := s.session.Model
	s.session = s.session.WithModel(name)
	s.mu.Unlock()

	s.Logger.Info("model switched", map[string]interface{}{"from": previous, "to": name})
	return nil
}

// Ping checks that the inference server answers.
func (s *Service) Ping(ctx context.Context) error {
	provider, err := s.currentProvider()
	if err != nil {
		return err
	}
	return provider.Ping(ctx)
}

// InstalledModels lists the models the server reports.
func (s *Service) InstalledModels(ctx context.Context) ([]string, error) {
	provider, err := s.currentProvider()
	if err != nil {
		return nil, err
	}
	return provider.ListModels(ctx)
}

// ModelInstalled reports whether the session's model is installed.
func (s *Service) ModelInstalled(ctx context.Context) (bool, error) {
	installed, err := s.InstalledModels(ctx)
	if err != nil {
		return false, err
	}
	return domain.ModelInstalled(installed, s.Session().Model), nil
}

// CanPull reports whether the current provider can download models.
func (s *Service) CanPull() bool {
	provider, err := s.currentProvider()
	if err != nil {
		return false
	}
	_, ok := provider.(ports.ModelPuller)
	return ok
}

// PullModel downloads name through the server when the provider supports it.
func (s *Service) PullModel(ctx context.Context, name string, progress func(domain.PullProgress)) error {
	provider, err := s.currentProvider()
	if err != nil {
		return err
	}
	puller, ok := provider.(ports.ModelPuller)
	if !ok {
		return fmt.Errorf("%s servers cannot pull models; download %s with the server's own tooling", provider.Name(), name)
	}
	s.Logger.Info("pulling model", map[string]interface{}{"model": name})
	return puller.Pull(ctx, name, progress)
}

// complete sends prompt to the session's model and returns the reply. When
// streaming is enabled and writer is set, chunks reach writer as they arrive;
// otherwise the call is bounded by Options.Timeout.
func (s *Service) complete(ctx context.Context, prompt domain.Prompt, writer ports.StreamWriter) (string, time.Duration, error) {
	provider, err := s.currentProvider()
	if err != nil {
		return "", 0, err
	}
	req := ports.ProviderRequest{
		Model:       s.Session().Model,
		System:      prompt.System,
		Prompt:      prompt.User,
		Temperature: s.Options.Temperature,
		MaxTokens:   s.Options.MaxTokens,
	}

	start := s.now()
	var text string
	if s.Options.Stream && writer != nil {
		acc := newAccumulator(writer)
		_, err = provider.Stream(ctx, req, acc.add)
		if doneErr := acc.done(); err == nil {
			err = doneErr
		}
		text = acc.text()
		s.Logger.Debug("stream finished", map[string]interface{}{"chunks": acc.chunks})
	} else {
		if s.Options.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.Options.Timeout)
			defer cancel()
		}
		text, err = provider.Generate(ctx, req)
	}
	elapsed := s.now().Sub(start)
	if err != nil {
		s.Logger.Warn("model call failed", map[string]interface{}{
			"provider": provider.Name(),
			"model":    req.Model,
			"error":    err.Error(),
		})
		return "", elapsed, fmt.Errorf("model %s: %w", req.Model, err)
	}
	return text, elapsed, nil
}

// environment returns the collected context snapshot, gathering it once.
func (s *Service) environment(ctx context.Context) domain.ContextSnapshot {
	s.mu.Lock()
	cached := s.snapshot
	s.mu.Unlock()
	if cached != nil {
		return *cached
	}
	if s.ContextCollector == nil {
		return domain.ContextSnapshot{}
	}

	snapshot, err := s.ContextCollector.Collect(ctx)
	if err != nil {
		s.Logger.Warn("context collection failed", map[string]interface{}{"error": err.Error()})
		return domain.ContextSnapshot{}
	}
	s.mu.Lock()
	s.snapshot = &snapshot
	s.mu.Unlock()
	return snapshot
}

func (s *Service) currentProvider() (ports.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider == nil {
		return nil, errors.New("assistant: no session; call UseSession first")
	}
	return s.provider, nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
