// Package catalog reads the normative category catalog from YAML.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/compliance-docs-api/internal/models"
)

// File is the top-level catalog document.
type File struct {
	Version    int     `yaml:"version"`
	Categories []Entry `yaml:"categories"`
}

// Entry describes one category.
type Entry struct {
	Name                string `yaml:"name"`
	Description         string `yaml:"description"`
	NormativeReference  string `yaml:"normative_reference"`
	Type                string `yaml:"type"`
	Required            bool   `yaml:"required"`
	RenewalPeriodMonths int    `yaml:"renewal_period_months"`
}

// Load reads and validates a catalog file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(bytes.NewReader(raw))
}

// Parse decodes a catalog, rejecting unknown keys.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every entry and rejects duplicate names within a type.
func (f *File) Validate() error {
	if len(f.Categories) == 0 {
		return fmt.Errorf("catalog has no categories")
	}
	seen := make(map[string]int, len(f.Categories))
	for i, c := range f.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("category %d: name is required", i+1)
		}
		switch models.CategoryType(c.Type) {
		case models.CategoryTypeDocument, models.CategoryTypeRecord:
		default:
			return fmt.Errorf("category %q: type must be document or record", name)
		}
		if c.RenewalPeriodMonths < 0 {
			return fmt.Errorf("category %q: renewal_period_months cannot be negative", name)
		}
		key := c.Type + "/" + strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("category %q duplicates entry %d", name, prev+1)
		}
		seen[key] = i
	}
	return nil
}

// Models converts the entries into active category models.
func (f *File) Models() []models.DocumentCategory {
	out := make([]models.DocumentCategory, 0, len(f.Categories))
	for _, c := range f.Categories {
		out = append(out, models.DocumentCategory{
			Name:                strings.TrimSpace(c.Name),
			Description:         c.Description,
			NormativeReference:  c.NormativeReference,
			Type:                models.CategoryType(c.Type),
			IsRequired:          c.Required,
			RenewalPeriodMonths: c.RenewalPeriodMonths,
			IsActive:            true,
		})
	}
	return out
}
