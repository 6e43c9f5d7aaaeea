// Package entityservice applies mutation requests to the store and returns
// the refreshed entity each mutation produced.
package entityservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/metadata"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/mutation"
	"github.com/starford/folio/internal/store"
)

// EntityListItem is a lightweight item in a list response.
type EntityListItem struct {
	ID       string      `json:"id"`
	Kind     models.Kind `json:"kind"`
	Name     string      `json:"name"`
	TeamSlug string      `json:"team_slug,omitempty"`
}

// CreateEntityInput describes a new entity.
type CreateEntityInput struct {
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	TeamSlug    string `json:"team_slug,omitempty"`
	ProjectID   int64  `json:"project_id,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
}

// Validate checks the kind and, for a project source, the wrapped source.
func (in CreateEntityInput) Validate() error {
	kinds := []interface{}{string(models.KindSource), string(models.KindProjectSource), string(models.KindMedia)}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&in.Name, validation.Length(0, 500)),
		validation.Field(&in.SourceID, validation.When(in.Kind == string(models.KindProjectSource), validation.Required)),
	)
}

// Service coordinates store writes for the mutation endpoint.
type Service struct {
	db     store.Store
	logger *slog.Logger
}

// NewService creates a new entity service.
func NewService(db store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

// GetEntity returns an entity with its collections.
func (s *Service) GetEntity(_ context.Context, id string) (*models.Entity, error) {
	return s.db.GetEntity(id)
}

// ListEntities returns paginated entities with optional tag filter.
func (s *Service) ListEntities(_ context.Context, limit, offset int, tag string) ([]EntityListItem, int, error) {
	rows, total, err := s.db.ListEntities(limit, offset, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]EntityListItem, len(rows))
	for i, r := range rows {
		items[i] = EntityListItem{ID: r.ID, Kind: r.Kind, Name: r.Name, TeamSlug: r.TeamSlug}
	}
	return items, total, nil
}

// CreateEntity stores a new entity.
func (s *Service) CreateEntity(_ context.Context, in CreateEntityInput) (*models.Entity, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("entityservice: create: %v: %w", err, apperr.ErrInvalidInput)
	}
	e := models.Entity{
		ID:          in.ID,
		Kind:        models.Kind(in.Kind),
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		TeamSlug:    in.TeamSlug,
		ProjectID:   in.ProjectID,
	}
	if in.SourceID != "" {
		e.Source = &models.Entity{ID: in.SourceID}
	}
	return s.db.CreateEntity(e)
}

// GetTeam returns a team's settings.
func (s *Service) GetTeam(_ context.Context, slug string) (*models.Team, error) {
	return s.db.GetTeam(slug)
}

// Apply performs one mutation and returns the refreshed state of the
// addressed entity.
func (s *Service) Apply(ctx context.Context, req mutation.Request) (*models.Entity, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("entityservice: %v: %w", err, apperr.ErrInvalidInput)
	}
	p := req.Payload
	var err error
	switch req.Operation {
	case mutation.OpCreateAnnotation:
		err = s.createAnnotation(req.EntityID, p)
	case mutation.OpUpdateAnnotation:
		err = s.updateAnnotation(req.EntityID, p)
	case mutation.OpCreateTag:
		err = s.createTag(req.EntityID, p)
	case mutation.OpDeleteTag:
		if p[mutation.KeyTagID] == "" {
			return nil, fmt.Errorf("entityservice: tag_id is required: %w", apperr.ErrInvalidInput)
		}
		err = s.db.DeleteTag(req.EntityID, p[mutation.KeyTagID])
	case mutation.OpUpdateEntity:
		err = s.db.UpdateEntity(req.EntityID, store.EntityFields{
			Name:        p[mutation.KeyName],
			Description: p[mutation.KeyDescription],
			Image:       p[mutation.KeyImage],
		})
	}
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "entityservice: applied",
		slog.String("operation", string(req.Operation)),
		slog.String("entity_id", req.EntityID))
	return s.db.GetEntity(req.EntityID)
}

func (s *Service) createAnnotation(entityID string, p map[string]string) error {
	a := models.Annotation{Type: p[mutation.KeyAnnotationType], AnnotatorID: p[mutation.KeyAnnotatorID]}
	if pt := p[mutation.KeyParentType]; pt != "" {
		e, err := s.db.GetEntity(entityID)
		if err != nil {
			return err
		}
		if want := e.Kind.ParentType(); pt != want {
			return fmt.Errorf("entityservice: parent_type %q, entity is %s: %w", pt, want, apperr.ErrInvalidInput)
		}
	}
	switch a.Type {
	case models.AnnotationTypeMetadata:
		value := p[mutation.KeyMetadataValue]
		if _, err := metadata.DecodeValue(value); err != nil {
			return fmt.Errorf("entityservice: metadata_value: %v: %w", err, apperr.ErrInvalidInput)
		}
		a.Content = metadata.WrapContent(metadata.FieldMetadataValue, value)
	case models.AnnotationTypeComment:
		text := strings.TrimSpace(p[mutation.KeyText])
		if text == "" {
			return fmt.Errorf("entityservice: comment text is required: %w", apperr.ErrInvalidInput)
		}
		a.Content = metadata.WrapContent(metadata.FieldText, text)
	default:
		return fmt.Errorf("entityservice: annotation type %q: %w", a.Type, apperr.ErrInvalidInput)
	}
	_, err := s.db.CreateAnnotation(entityID, a)
	return err
}

func (s *Service) updateAnnotation(entityID string, p map[string]string) error {
	id := p[mutation.KeyAnnotationID]
	if id == "" {
		return fmt.Errorf("entityservice: annotation_id is required: %w", apperr.ErrInvalidInput)
	}
	value := p[mutation.KeyMetadataValue]
	if _, err := metadata.DecodeValue(value); err != nil {
		return fmt.Errorf("entityservice: metadata_value: %v: %w", err, apperr.ErrInvalidInput)
	}
	return s.db.UpdateAnnotation(entityID, id, metadata.WrapContent(metadata.FieldMetadataValue, value))
}

func (s *Service) createTag(entityID string, p map[string]string) error {
	label := strings.TrimSpace(p[mutation.KeyLabel])
	if label == "" {
		return fmt.Errorf("entityservice: label is required: %w", apperr.ErrInvalidInput)
	}
	_, err := s.db.CreateTag(entityID, label)
	return err
}
