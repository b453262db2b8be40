// Package catalog serves the static example commands shown by `templates`.
package catalog

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/strike-go/assets"
	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// Footnote is printed below the catalog.
const Footnote = "Note: Replace placeholder values (like target.com, 10.0.0.1) with your actual targets.\nAlways ensure you have permission to test the targets."

type catalogFile struct {
	Categories []domain.TemplateCategory `yaml:"categories"`
}

// Catalog is an immutable set of templates grouped by category.
type Catalog struct {
	categories []domain.TemplateCategory
	flat       []domain.Template
	keys       []string
}

// New loads the embedded catalog.
func New() (*Catalog, error) {
	return Parse(assets.TemplatesYAML)
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("template catalog has no categories")
	}

	c := &Catalog{}
	for _, category := range file.Categories {
		if strings.TrimSpace(category.Name) == "" {
			return nil, fmt.Errorf("template category without a name")
		}
		templates := make([]domain.Template, 0, len(category.Templates))
		for _, tpl := range category.Templates {
			tpl.Category = category.Name
			templates = append(templates, tpl)
			c.flat = append(c.flat, tpl)
			c.keys = append(c.keys, category.Name+" "+tpl.Title+" "+tpl.Command)
		}
		c.categories = append(c.categories, domain.TemplateCategory{Name: category.Name, Templates: templates})
	}
	return c, nil
}

// All returns every template in catalog order.
func (c *Catalog) All() []domain.Template {
	out := make([]domain.Template, len(c.flat))
	copy(out, c.flat)
	return out
}

// Categories returns the templates grouped by category, in catalog order.
func (c *Catalog) Categories() []domain.TemplateCategory {
	out := make([]domain.TemplateCategory, len(c.categories))
	for i, category := range c.categories {
		templates := make([]domain.Template, len(category.Templates))
		copy(templates, category.Templates)
		out[i] = domain.TemplateCategory{Name: category.Name, Templates: templates}
	}
	return out
}

// Search fuzzy-matches query against category, title and command, best
// match first. An empty query returns All.
func (c *Catalog) Search(query string) []domain.Template {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.All()
	}
	matches := fuzzy.Find(query, c.keys)
	out := make([]domain.Template, 0, len(matches))
	for _, match := range matches {
		out = append(out, c.flat[match.Index])
	}
	return out
}

// Group regroups templates by category, keeping first-seen order.
func Group(templates []domain.Template) []domain.TemplateCategory {
	var groups []domain.TemplateCategory
	index := make(map[string]int)
	for _, tpl := range templates {
		i, ok := index[tpl.Category]
		if !ok {
			i = len(groups)
			index[tpl.Category] = i
			groups = append(groups, domain.TemplateCategory{Name: tpl.Category})
		}
		groups[i].Templates = append(groups[i].Templates, tpl)
	}
	return groups
}

var _ ports.TemplateCatalog = (*Catalog)(nil)
