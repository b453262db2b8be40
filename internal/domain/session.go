package domain

import "strings"

// SessionConfig is the connection state of the running session.
// Switching models replaces Model only.
type SessionConfig struct {
	Model    string
	Endpoint string
	Provider ProviderKind
}

// WithModel returns a copy of the session bound to another model.
func (s SessionConfig) WithModel(name string) SessionConfig {
	s.Model = strings.TrimSpace(name)
	return s
}

// Template is a static example command in the catalog.
type Template struct {
	Category string `yaml:"-"`
	Title    string `yaml:"title"`
	Command  string `yaml:"command"`
}

// TemplateCategory groups templates under a heading.
type TemplateCategory struct {
	Name      string     `yaml:"name"`
	Templates []Template `yaml:"templates"`
}
