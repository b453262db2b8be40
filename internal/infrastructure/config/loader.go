package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/strike-go/assets"
	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/pkg/filesystem"
	"github.com/doeshing/strike-go/internal/ports"
)

// PathEnv overrides the configuration file location.
const PathEnv = "STRIKE_CONFIG"

// FileLoader loads YAML configuration from ~/.strike/config.yaml (overridable
// via STRIKE_CONFIG). The file is optional and never written; fields it omits
// keep the embedded defaults.
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return domain.Config{}, err
	}

	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && l.overridePath == "" {
			return hydrateDefaults(cfg), nil
		}
		return domain.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return hydrateDefaults(cfg), nil
}

// Path returns the file Load reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(PathEnv); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.StrikeDir(), "config.yaml")
}

// Defaults returns the embedded default configuration.
func Defaults() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse embedded config: %w", err)
	}
	return cfg, nil
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Preferences.DefaultModel == "" {
		cfg.Preferences.DefaultModel = domain.DefaultModelName
	}
	if cfg.Preferences.TimeoutSeconds == 0 {
		cfg.Preferences.TimeoutSeconds = int(domain.DefaultRequestTimeout.Seconds())
	}
	if cfg.Preferences.MaxTokens == 0 {
		cfg.Preferences.MaxTokens = domain.DefaultMaxTokens
	}
	if cfg.Provider.Endpoint == "" {
		cfg.Provider.Endpoint = domain.DefaultEndpoint
	}
	cfg.Security.RulesFile = filesystem.ExpandPath(cfg.Security.RulesFile)
	cfg.History.ArchivePath = filesystem.ExpandPath(cfg.History.ArchivePath)
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
