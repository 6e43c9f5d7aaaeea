package store

import "github.com/starford/folio/internal/models"

// Store defines the persistence operations behind the mutation endpoint.
// Consumers should depend on this interface rather than the concrete *DB.
type Store interface {
	CreateEntity(e models.Entity) (*models.Entity, error)
	GetEntity(id string) (*models.Entity, error)
	ListEntities(limit, offset int, tag string) ([]models.Entity, int, error)
	UpdateEntity(id string, f EntityFields) error

	CreateAnnotation(entityID string, a models.Annotation) (*models.Annotation, error)
	UpdateAnnotation(entityID, annotationID, content string) error

	CreateTag(entityID, label string) (*models.Tag, error)
	DeleteTag(entityID, tagID string) error

	UpsertTeam(t models.Team) error
	GetTeam(slug string) (*models.Team, error)
	ListTeams() ([]models.Team, error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
