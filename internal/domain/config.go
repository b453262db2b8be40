package domain

// Config mirrors ~/.strike/config.yaml.
type Config struct {
	ConfigFormatVersion string           `yaml:"config_format_version"`
	Preferences         Preferences      `yaml:"preferences"`
	Provider            ProviderSettings `yaml:"provider"`
	Models              []ModelInfo      `yaml:"models"`
	Security            SecuritySettings `yaml:"security"`
	History             HistorySettings  `yaml:"history"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel   string  `yaml:"default_model"`
	Stream         bool    `yaml:"stream"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout"`
	HistoryWindow  int     `yaml:"history_window"`
	AutoPull       bool    `yaml:"auto_pull"`
}

// ProviderSettings selects the inference server.
type ProviderSettings struct {
	Kind      ProviderKind `yaml:"kind"`
	Endpoint  string       `yaml:"endpoint"`
	APIKeyEnv string       `yaml:"api_key_env"`
}

// SecuritySettings defines guardrail behavior.
type SecuritySettings struct {
	Enabled   bool   `yaml:"enabled"`
	RulesFile string `yaml:"rules_file"`
}

// HistorySettings controls the optional exchange archive.
type HistorySettings struct {
	ArchivePath string `yaml:"archive_path"`
}
