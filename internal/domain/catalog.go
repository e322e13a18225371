package domain

import (
	"regexp"
	"strings"
	"time"
)

// Catalog — коллекция тканей одной линейки.
type Catalog struct {
	ID            string
	Slug          string
	Name          string
	Description   string
	Fabric        string
	CoverImageURL string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify строит slug из названия каталога.
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}

// Validate проверяет обязательные поля каталога.
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrCatalogNameRequired
	}
	if c.Slug == "" || Slugify(c.Slug) != c.Slug {
		return ErrSlugInvalid
	}
	return nil
}
