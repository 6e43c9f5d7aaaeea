// Package metadata finds, decodes and encodes the "metadata" annotation that
// carries an entity's dynamic field map.
package metadata

import (
	"log/slog"

	"github.com/starford/folio/internal/models"
)

// Repository reads and writes metadata annotations.
type Repository struct {
	logger *slog.Logger
}

// NewRepository creates a Repository. A nil logger uses slog.Default().
func NewRepository(logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{logger: logger}
}

// Find returns the first metadata annotation in collection order, or nil.
// More than one metadata annotation is a data-integrity problem; the first
// one still wins and the duplicate is logged.
func (r *Repository) Find(collection []models.Annotation) *models.Annotation {
	var found *models.Annotation
	count := 0
	for i := range collection {
		if collection[i].Type != models.AnnotationTypeMetadata {
			continue
		}
		count++
		if found == nil {
			found = &collection[i]
		}
	}
	if count > 1 {
		r.logger.Warn("metadata: multiple metadata annotations, using first",
			slog.String("annotation_id", found.ID),
			slog.Int("count", count))
	}
	return found
}

// Decode returns the field map stored in a, or nil when a is nil, empty or
// malformed. Failures never propagate: the caller starts from a blank map.
func (r *Repository) Decode(a *models.Annotation) FieldMap {
	if a == nil {
		return nil
	}
	rec, err := UnwrapContent(a.Content)
	if err != nil {
		r.logger.Debug("metadata: unreadable envelope",
			slog.String("annotation_id", a.ID),
			slog.String("error", err.Error()))
		return nil
	}
	if rec.Value == "" {
		return nil
	}
	m, err := DecodeValue(rec.Value)
	if err != nil {
		r.logger.Debug("metadata: unreadable field map",
			slog.String("annotation_id", a.ID),
			slog.String("error", err.Error()))
		return nil
	}
	return m
}

// Encode builds the stored content payload for m. Decode(Encode(m)) == m for
// any non-nil m.
func (r *Repository) Encode(m FieldMap) string {
	return WrapContent(FieldMetadataValue, EncodeValue(m))
}

// Load finds and decodes the metadata of e's annotation target.
func (r *Repository) Load(e *models.Entity) FieldMap {
	if e == nil {
		return nil
	}
	return r.Decode(r.Find(e.AnnotationTarget().Annotations))
}
