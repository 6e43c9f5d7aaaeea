// Package testutil provides shared test helpers for setting up databases and
// seeded entities.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedSource stores a Source entity named name owned by team.
func SeedSource(t *testing.T, db *store.DB, name, team string) *models.Entity {
	t.Helper()
	e, err := db.CreateEntity(models.Entity{Kind: models.KindSource, Name: name, TeamSlug: team})
	if err != nil {
		t.Fatalf("seed source: %v", err)
	}
	return e
}

// SeedProjectSource stores a ProjectSource wrapping src inside project.
func SeedProjectSource(t *testing.T, db *store.DB, src *models.Entity, project int64) *models.Entity {
	t.Helper()
	e, err := db.CreateEntity(models.Entity{
		Kind:      models.KindProjectSource,
		Name:      src.Name,
		TeamSlug:  src.TeamSlug,
		ProjectID: project,
		Source:    src,
	})
	if err != nil {
		t.Fatalf("seed project source: %v", err)
	}
	return e
}
