package seed

import (
	_ "embed"
	"fmt"

	"blogicum/internal/models"
	"blogicum/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed reference.yml
var referenceYAML []byte

// ReferenceData is the set of categories and locations every installation starts with.
type ReferenceData struct {
	Locations  []ReferenceLocation `yaml:"locations"`
	Categories []ReferenceCategory `yaml:"categories"`
}

type ReferenceLocation struct {
	Name        string `yaml:"name"`
	IsPublished bool   `yaml:"is_published"`
}

type ReferenceCategory struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	IsPublished bool   `yaml:"is_published"`
}

// LoadReference parses the embedded reference.yml.
func LoadReference() (*ReferenceData, error) {
	return ParseReference(referenceYAML)
}

// ParseReference decodes reference data from YAML.
func ParseReference(raw []byte) (*ReferenceData, error) {
	var data ReferenceData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse reference data: %w", err)
	}
	for i, c := range data.Categories {
		if c.Slug == "" || c.Title == "" {
			return nil, fmt.Errorf("reference category #%d: title and slug are required", i+1)
		}
		if err := validation.ValidateSlug(c.Slug); err != nil {
			return nil, fmt.Errorf("reference category %q: %w", c.Slug, err)
		}
	}
	for i, l := range data.Locations {
		if l.Name == "" {
			return nil, fmt.Errorf("reference location #%d: name is required", i+1)
		}
	}
	return &data, nil
}

// Reference inserts the embedded reference data. Rows that already exist are
// left as they are, so publication changes made by an operator survive restarts.
func Reference(db *gorm.DB) error {
	data, err := LoadReference()
	if err != nil {
		return err
	}
	return ApplyReference(db, data)
}

// ApplyReference inserts data in one transaction. It is safe to run repeatedly.
func ApplyReference(db *gorm.DB, data *ReferenceData) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, item := range data.Locations {
			var loc models.Location
			err := tx.Where(models.Location{Name: item.Name}).
				Attrs(models.Location{IsPublished: item.IsPublished}).
				FirstOrCreate(&loc).Error
			if err != nil {
				return fmt.Errorf("seed location %s: %w", item.Name, err)
			}
		}

		for _, item := range data.Categories {
			var cat models.Category
			err := tx.Where(models.Category{Slug: item.Slug}).
				Attrs(models.Category{
					Title:       item.Title,
					Description: item.Description,
					IsPublished: item.IsPublished,
				}).
				FirstOrCreate(&cat).Error
			if err != nil {
				return fmt.Errorf("seed category %s: %w", item.Slug, err)
			}
		}
		return nil
	})
}
