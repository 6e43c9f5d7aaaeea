package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// CreateTag attaches label to the entity. A label already on the entity is
// rejected with apperr.ErrAlreadyExists.
func (db *DB) CreateTag(entityID, label string) (*models.Tag, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM entities WHERE id = ?`, entityID).Scan(&n); err != nil {
		return nil, fmt.Errorf("store: create tag: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("store: entity %s: %w", entityID, apperr.ErrNotFound)
	}
	if err := tx.QueryRow(`SELECT COUNT(*) FROM tags WHERE entity_id = ? AND label = ?`, entityID, label).Scan(&n); err != nil {
		return nil, fmt.Errorf("store: create tag: %w", err)
	}
	if n > 0 {
		return nil, fmt.Errorf("store: tag %q: %w", label, apperr.ErrAlreadyExists)
	}

	t := models.Tag{ID: uuid.NewString(), Label: label, CreatedAt: time.Now().UTC()}
	if _, err := tx.Exec(`INSERT INTO tags (id, entity_id, label, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, entityID, t.Label, t.CreatedAt); err != nil {
		return nil, fmt.Errorf("store: create tag: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit tag: %w", err)
	}
	return &t, nil
}

// DeleteTag removes a tag owned by entityID.
func (db *DB) DeleteTag(entityID, tagID string) error {
	res, err := db.conn.Exec(`DELETE FROM tags WHERE id = ? AND entity_id = ?`, tagID, entityID)
	if err != nil {
		return fmt.Errorf("store: delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: tag %s: %w", tagID, apperr.ErrNotFound)
	}
	return nil
}

func (db *DB) tags(entityID string) ([]models.Tag, error) {
	rows, err := db.conn.Query(`SELECT id, label, created_at FROM tags WHERE entity_id = ? ORDER BY seq`, entityID)
	if err != nil {
		return nil, fmt.Errorf("store: tags: %w", err)
	}
	defer rows.Close()

	out := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Label, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
