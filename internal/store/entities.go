package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// EntityFields are the core fields changed by an entity update. An empty
// Image leaves the stored image unchanged.
type EntityFields struct {
	Name        string
	Description string
	Image       string
}

const entityColumns = `dbid, id, kind, name, description, image, team_slug, project_id, source_id, created_at, updated_at`

// CreateEntity inserts e and returns the stored entity. A ProjectSource must
// reference an existing Source through e.Source.
func (db *DB) CreateEntity(e models.Entity) (*models.Entity, error) {
	if !e.Kind.Valid() {
		return nil, fmt.Errorf("store: create entity: kind %q: %w", e.Kind, apperr.ErrInvalidInput)
	}
	sourceID := ""
	if e.Kind == models.KindProjectSource {
		if e.Source == nil || e.Source.ID == "" {
			return nil, fmt.Errorf("store: create entity: project source needs a source: %w", apperr.ErrInvalidInput)
		}
		src, err := db.GetEntity(e.Source.ID)
		if err != nil {
			return nil, err
		}
		if src.Kind != models.KindSource {
			return nil, fmt.Errorf("store: create entity: %s is a %s: %w", src.ID, src.Kind, apperr.ErrInvalidInput)
		}
		sourceID = src.ID
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO entities (id, kind, name, description, image, team_slug, project_id, source_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Kind), e.Name, e.Description, e.Image, e.TeamSlug, e.ProjectID, sourceID, now, now)
	if err != nil {
		if exists, _ := db.entityExists(e.ID); exists {
			return nil, fmt.Errorf("store: create entity %s: %w", e.ID, apperr.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("store: create entity: %w", err)
	}
	return db.GetEntity(e.ID)
}

// GetEntity loads an entity with its annotations and tags in insertion
// order, and the wrapped source for a ProjectSource.
func (db *DB) GetEntity(id string) (*models.Entity, error) {
	row := db.conn.QueryRow(`SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, sourceID, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: entity %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get entity: %w", err)
	}
	if e.Annotations, err = db.annotations(id); err != nil {
		return nil, err
	}
	if e.Tags, err = db.tags(id); err != nil {
		return nil, err
	}
	if sourceID != "" {
		src, err := db.GetEntity(sourceID)
		if err != nil {
			return nil, err
		}
		e.Source = src
	}
	return e, nil
}

// ListEntities returns a page of entities without their collections,
// optionally restricted to those carrying tag, and the total count.
func (db *DB) ListEntities(limit, offset int, tag string) ([]models.Entity, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if tag != "" {
		where = `WHERE id IN (SELECT entity_id FROM tags WHERE label = ?)`
		args = append(args, tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM entities `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count entities: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+entityColumns+` FROM entities `+where+` ORDER BY dbid LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list entities: %w", err)
	}
	defer rows.Close()

	var out []models.Entity
	for rows.Next() {
		e, _, err := scanEntity(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

// UpdateEntity changes an entity's core fields.
func (db *DB) UpdateEntity(id string, f EntityFields) error {
	res, err := db.conn.Exec(`
		UPDATE entities SET
			name        = ?,
			description = ?,
			image       = CASE WHEN ? = '' THEN image ELSE ? END,
			updated_at  = ?
		WHERE id = ?
	`, f.Name, f.Description, f.Image, f.Image, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("store: update entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: entity %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (db *DB) entityExists(id string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM entities WHERE id = ?`, id).Scan(&n)
	return n > 0, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(s scanner) (*models.Entity, string, error) {
	var (
		e        models.Entity
		kind     string
		sourceID string
	)
	err := s.Scan(&e.NumericID, &e.ID, &kind, &e.Name, &e.Description, &e.Image,
		&e.TeamSlug, &e.ProjectID, &sourceID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, "", err
	}
	e.Kind = models.Kind(kind)
	e.Annotations = []models.Annotation{}
	e.Tags = []models.Tag{}
	return &e, sourceID, nil
}
