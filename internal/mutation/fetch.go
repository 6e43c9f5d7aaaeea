package mutation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// Read endpoints of the backend.
const (
	EntitiesPath = "/api/entities/"
	TeamsPath    = "/api/teams/"
)

// GetEntity reads an entity from the backend. Reads bypass the breaker.
func (t *HTTPTransport) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	var e models.Entity
	if err := t.get(ctx, EntitiesPath+url.PathEscape(id), &e); err != nil {
		return nil, fmt.Errorf("mutation: fetch entity %s: %w", id, err)
	}
	return &e, nil
}

// GetTeam reads a team's settings from the backend.
func (t *HTTPTransport) GetTeam(ctx context.Context, slug string) (*models.Team, error) {
	var team models.Team
	if err := t.get(ctx, TeamsPath+url.PathEscape(slug), &team); err != nil {
		return nil, fmt.Errorf("mutation: fetch team %s: %w", slug, err)
	}
	return &team, nil
}

func (t *HTTPTransport) get(ctx context.Context, path string, out any) error {
	r, err := t.client.R().SetContext(ctx).SetResult(out).Get(path)
	if err != nil {
		return err
	}
	switch r.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return apperr.ErrNotFound
	}
	return fmt.Errorf("status %d: %s", r.StatusCode(), ExtractMessage(r.String()))
}
