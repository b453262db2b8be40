package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// Check names used in reports.
const (
	CheckConfig    = "Config"
	CheckServer    = "Inference server"
	CheckModel     = "Model"
	CheckCatalog   = "Templates"
	CheckGuardrail = "Guardrail"
	CheckContext   = "Environment"
)

// Backend is the part of the assistant the checks need.
type Backend interface {
	Ping(ctx context.Context) error
	ModelInstalled(ctx context.Context) (bool, error)
	Session() domain.SessionConfig
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider   ports.ConfigProvider
	Backend          Backend
	Catalog          ports.TemplateCatalog
	SecurityService  ports.SecurityService
	ContextCollector ports.ContextCollector
}

// Preflight runs the checks the interactive session depends on. An
// unreachable server is fatal and returned as ErrServerUnreachable; a missing
// model is only reported as a warning.
func (s *Service) Preflight(ctx context.Context) (domain.HealthReport, error) {
	session := s.Backend.Session()
	if err := s.Backend.Ping(ctx); err != nil {
		check := fail(CheckServer, fmt.Sprintf("%s: %v", session.Endpoint, err))
		return domain.HealthReport{Checks: []domain.HealthCheck{check}},
			fmt.Errorf("%w at %s", domain.ErrServerUnreachable, session.Endpoint)
	}
	checks := []domain.HealthCheck{ok(CheckServer, session.Endpoint)}
	checks = append(checks, s.modelCheck(ctx, session.Model))
	return domain.HealthReport{Checks: checks}, nil
}

// Run executes every check and returns a report. The error is non-nil only
// when the configuration cannot be loaded or the server is unreachable.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	if s.ConfigProvider != nil {
		cfg, err := s.ConfigProvider.Load(ctx)
		if err != nil {
			checks = append(checks, fail(CheckConfig, fmt.Sprintf("load failed: %v", err)))
			return domain.HealthReport{Checks: checks}, err
		}
		if err := cfg.ValidateConsistency(); err != nil {
			checks = append(checks, fail(CheckConfig, err.Error()))
		} else {
			checks = append(checks, ok(CheckConfig, fmt.Sprintf("format %s, provider %s", valueOr(cfg.ConfigFormatVersion, "1"), cfg.GetProviderKind())))
		}
	}

	preflight, preflightErr := s.Preflight(ctx)
	checks = append(checks, preflight.Checks...)

	if s.Catalog != nil {
		categories := s.Catalog.Categories()
		if len(categories) == 0 {
			checks = append(checks, fail(CheckCatalog, "no templates loaded"))
		} else {
			checks = append(checks, ok(CheckCatalog, fmt.Sprintf("%d templates in %d categories", len(s.Catalog.All()), len(categories))))
		}
	}

	checks = append(checks, s.guardrailCheck())

	if s.ContextCollector != nil {
		if snapshot, err := s.ContextCollector.Collect(ctx); err == nil {
			details := "no security tools detected"
			if len(snapshot.AvailableTools) > 0 {
				details = "detected tools: " + strings.Join(snapshot.AvailableTools, ", ")
			}
			checks = append(checks, ok(CheckContext, details))
		} else {
			checks = append(checks, warn(CheckContext, err.Error()))
		}
	}

	return domain.HealthReport{Checks: checks}, preflightErr
}

func (s *Service) modelCheck(ctx context.Context, model string) domain.HealthCheck {
	installed, err := s.Backend.ModelInstalled(ctx)
	switch {
	case err != nil:
		return warn(CheckModel, fmt.Sprintf("could not list models: %v", err))
	case !installed:
		return warn(CheckModel, fmt.Sprintf("%v: %s is not installed", domain.ErrModelUnavailable, model))
	default:
		return ok(CheckModel, model)
	}
}

func (s *Service) guardrailCheck() domain.HealthCheck {
	if s.SecurityService == nil {
		return warn(CheckGuardrail, "disabled")
	}
	if _, err := s.SecurityService.Evaluate("ls"); err != nil {
		return fail(CheckGuardrail, err.Error())
	}
	if counter, isCounter := s.SecurityService.(interface{ RuleCount() int }); isCounter {
		return ok(CheckGuardrail, fmt.Sprintf("%d rules loaded", counter.RuleCount()))
	}
	return ok(CheckGuardrail, "rules loaded")
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
