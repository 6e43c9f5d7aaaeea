// Package teams loads team settings from a YAML file into the store and keeps
// them current while the file changes.
package teams

import (
	"fmt"
	"log/slog"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/models"
	pkgconfig "github.com/starford/folio/pkg/config"
)

// File is the layout of the teams file:
//
//	teams:
//	  - slug: newsroom
//	    name: Newsroom
//	    suggested_tags: "local, politics, ${EXTRA_TAGS}"
type File struct {
	Teams []models.Team `yaml:"teams"`
}

// Validate requires a unique slug on every team.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Teams))
	for i := range f.Teams {
		t := &f.Teams[i]
		if err := validation.ValidateStruct(t,
			validation.Field(&t.Slug, validation.Required),
		); err != nil {
			return fmt.Errorf("teams[%d]: %w", i, err)
		}
		if seen[t.Slug] {
			return fmt.Errorf("teams[%d]: duplicate slug %q", i, t.Slug)
		}
		seen[t.Slug] = true
	}
	return nil
}

// Writer persists team settings.
type Writer interface {
	UpsertTeam(t models.Team) error
}

// Load reads and validates the teams file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("teams: read %s: %w", path, err)
	}
	var f File
	if err := pkgconfig.Parse(data, &f); err != nil {
		return nil, fmt.Errorf("teams: %s: %w", path, err)
	}
	return &f, nil
}

// Sync loads the teams file and upserts every team it lists. Teams removed
// from the file are kept in the store. It returns the synced slugs.
func Sync(w Writer, path string, logger *slog.Logger) ([]string, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(f.Teams))
	for _, t := range f.Teams {
		if err := w.UpsertTeam(t); err != nil {
			return slugs, fmt.Errorf("teams: upsert %s: %w", t.Slug, err)
		}
		slugs = append(slugs, t.Slug)
	}
	logger.Info("teams: synced", slog.String("path", path), slog.Int("count", len(slugs)))
	return slugs, nil
}
