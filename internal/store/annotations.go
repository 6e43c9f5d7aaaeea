package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// CreateAnnotation appends a to the entity's annotation collection.
func (db *DB) CreateAnnotation(entityID string, a models.Annotation) (*models.Annotation, error) {
	if a.Type == "" {
		return nil, fmt.Errorf("store: create annotation: type is required: %w", apperr.ErrInvalidInput)
	}
	if ok, err := db.entityExists(entityID); err != nil {
		return nil, fmt.Errorf("store: create annotation: %w", err)
	} else if !ok {
		return nil, fmt.Errorf("store: entity %s: %w", entityID, apperr.ErrNotFound)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO annotations (id, entity_id, annotation_type, content, annotator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, entityID, a.Type, a.Content, a.AnnotatorID, a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create annotation: %w", err)
	}
	return &a, nil
}

// UpdateAnnotation replaces the content of an annotation owned by entityID.
func (db *DB) UpdateAnnotation(entityID, annotationID, content string) error {
	res, err := db.conn.Exec(`UPDATE annotations SET content = ? WHERE id = ? AND entity_id = ?`,
		content, annotationID, entityID)
	if err != nil {
		return fmt.Errorf("store: update annotation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: annotation %s: %w", annotationID, apperr.ErrNotFound)
	}
	return nil
}

func (db *DB) annotations(entityID string) ([]models.Annotation, error) {
	rows, err := db.conn.Query(`
		SELECT id, annotation_type, content, annotator_id, created_at
		FROM annotations WHERE entity_id = ? ORDER BY seq
	`, entityID)
	if err != nil {
		return nil, fmt.Errorf("store: annotations: %w", err)
	}
	defer rows.Close()

	out := []models.Annotation{}
	for rows.Next() {
		var a models.Annotation
		if err := rows.Scan(&a.ID, &a.Type, &a.Content, &a.AnnotatorID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
