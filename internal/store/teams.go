package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// UpsertTeam inserts or replaces a team's settings.
func (db *DB) UpsertTeam(t models.Team) error {
	if t.Slug == "" {
		return fmt.Errorf("store: upsert team: slug is required: %w", apperr.ErrInvalidInput)
	}
	_, err := db.conn.Exec(`
		INSERT INTO teams (slug, name, suggested_tags) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name           = excluded.name,
			suggested_tags = excluded.suggested_tags
	`, t.Slug, t.Name, t.SuggestedTags)
	if err != nil {
		return fmt.Errorf("store: upsert team: %w", err)
	}
	return nil
}

// GetTeam returns the team with the given slug.
func (db *DB) GetTeam(slug string) (*models.Team, error) {
	var t models.Team
	err := db.conn.QueryRow(`SELECT slug, name, suggested_tags FROM teams WHERE slug = ?`, slug).
		Scan(&t.Slug, &t.Name, &t.SuggestedTags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: team %s: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get team: %w", err)
	}
	return &t, nil
}

// ListTeams returns every team ordered by slug.
func (db *DB) ListTeams() ([]models.Team, error) {
	rows, err := db.conn.Query(`SELECT slug, name, suggested_tags FROM teams ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("store: list teams: %w", err)
	}
	defer rows.Close()

	var out []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.Slug, &t.Name, &t.SuggestedTags); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
