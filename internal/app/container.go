package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/doeshing/strike-go/internal/application/assistant"
	"github.com/doeshing/strike-go/internal/application/doctor"
	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/infrastructure/ai"
	"github.com/doeshing/strike-go/internal/infrastructure/catalog"
	"github.com/doeshing/strike-go/internal/infrastructure/config"
	contextcollector "github.com/doeshing/strike-go/internal/infrastructure/context"
	"github.com/doeshing/strike-go/internal/infrastructure/executor"
	"github.com/doeshing/strike-go/internal/infrastructure/history"
	"github.com/doeshing/strike-go/internal/infrastructure/security"
	"github.com/doeshing/strike-go/internal/pkg/filesystem"
	"github.com/doeshing/strike-go/internal/pkg/logger"
	"github.com/doeshing/strike-go/internal/ports"
)

// Overrides are command-line values that take precedence over the config file.
type Overrides struct {
	Model       string
	Endpoint    string
	Provider    string
	Temperature *float64
	Timeout     time.Duration
	NoStream    bool
	ArchivePath string
	AutoPull    bool
}

// Options controls how the container is built.
type Options struct {
	ConfigPath string
	Overrides  Overrides
	LogWriter  io.Writer
	Verbose    bool
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config        domain.Config
	ConfigLoader  *config.FileLoader
	Assistant     *assistant.Service
	DoctorService *doctor.Service
	Catalog       ports.TemplateCatalog
	HistoryStore  ports.HistoryRepository
	Archive       *history.ArchiveStore
	Logger        *logger.ZapLogger
}

// LoadConfig reads the config file and applies overrides without building
// any adapters.
func LoadConfig(ctx context.Context, opts Options) (domain.Config, *config.FileLoader, error) {
	loader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := loader.Load(ctx)
	if err != nil {
		return domain.Config{}, nil, err
	}
	cfg = applyOverrides(cfg, opts.Overrides)
	if err := cfg.ValidateConsistency(); err != nil {
		return domain.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfg, loader, err := LoadConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	logWriter := opts.LogWriter
	if logWriter == nil {
		logWriter = os.Stderr
	}
	log := logger.New(logWriter, opts.Verbose)

	var (
		historyStore ports.HistoryRepository = history.NewMemoryStore()
		archive      *history.ArchiveStore
	)
	if cfg.History.ArchivePath != "" {
		archive, err = history.OpenArchive(cfg.History.ArchivePath)
		if err != nil {
			return nil, err
		}
		historyStore = archive
		log.Info("archiving exchanges", map[string]interface{}{"path": archive.Path()})
	}

	var securityService ports.SecurityService
	if cfg.IsSecurityEnabled() {
		guardrail, err := security.NewGuardrail(cfg.Security.RulesFile)
		if err != nil {
			log.Warn("guardrail rules unreadable, using built-in rules", map[string]interface{}{
				"path":  cfg.Security.RulesFile,
				"error": err.Error(),
			})
			if guardrail, err = security.NewGuardrail(""); err != nil {
				closeArchive(archive)
				return nil, err
			}
		}
		securityService = guardrail
	}

	templates, err := catalog.New()
	if err != nil {
		closeArchive(archive)
		return nil, err
	}

	builder, err := ai.NewPromptBuilder(cfg.GetHistoryWindow())
	if err != nil {
		closeArchive(archive)
		return nil, err
	}

	collector := contextcollector.NewToolCollector()
	assistantService := &assistant.Service{
		ProviderFactory:  ai.NewFactory(cfg.Provider.APIKeyEnv),
		PromptBuilder:    builder,
		Parser:           ai.NewParser(),
		HistoryStore:     historyStore,
		SecurityService:  securityService,
		Simulator:        executor.NewSimulator(),
		ContextCollector: collector,
		Logger:           log,
		Options: assistant.Options{
			Stream:        cfg.StreamingEnabled(),
			Temperature:   cfg.GetTemperature(),
			MaxTokens:     cfg.GetMaxTokens(),
			Timeout:       cfg.GetTimeout(),
			HistoryWindow: cfg.GetHistoryWindow(),
		},
	}
	if err := assistantService.UseSession(cfg.Session()); err != nil {
		closeArchive(archive)
		return nil, err
	}

	doctorService := &doctor.Service{
		ConfigProvider:   loader,
		Backend:          assistantService,
		Catalog:          templates,
		SecurityService:  securityService,
		ContextCollector: collector,
	}

	return &Container{
		Config:        cfg,
		ConfigLoader:  loader,
		Assistant:     assistantService,
		DoctorService: doctorService,
		Catalog:       templates,
		HistoryStore:  historyStore,
		Archive:       archive,
		Logger:        log,
	}, nil
}

// Close releases the archive database and flushes the logger.
func (c *Container) Close() error {
	_ = c.Logger.Sync()
	if c.Archive != nil {
		return c.Archive.Close()
	}
	return nil
}

func applyOverrides(cfg domain.Config, o Overrides) domain.Config {
	if model := strings.TrimSpace(o.Model); model != "" {
		cfg.Preferences.DefaultModel = model
	}
	if endpoint := strings.TrimSpace(o.Endpoint); endpoint != "" {
		cfg.Provider.Endpoint = endpoint
		if o.Provider == "" {
			// Kind follows the new endpoint unless given explicitly.
			cfg.Provider.Kind = ""
		}
	}
	if o.Provider != "" {
		cfg.Provider.Kind = domain.ProviderKind(strings.ToLower(o.Provider))
	}
	if o.Temperature != nil {
		cfg.Preferences.Temperature = domain.ClampTemperature(*o.Temperature)
	}
	if o.Timeout > 0 {
		// Rounded up so a sub-second timeout never reads as unset.
		cfg.Preferences.TimeoutSeconds = int(math.Ceil(o.Timeout.Seconds()))
	}
	if o.NoStream {
		cfg.Preferences.Stream = false
	}
	if o.ArchivePath != "" {
		cfg.History.ArchivePath = filesystem.ExpandPath(o.ArchivePath)
	}
	if o.AutoPull {
		cfg.Preferences.AutoPull = true
	}
	return cfg
}

func closeArchive(archive *history.ArchiveStore) {
	if archive != nil {
		_ = archive.Close()
	}
}
