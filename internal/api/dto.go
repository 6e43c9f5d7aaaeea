package api

import (
	"github.com/starford/folio/internal/entityservice"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/mutation"
)

// MutationRequest is the request body of POST /api/mutations.
type MutationRequest = mutation.Request

// MutationResponse is the success body of POST /api/mutations.
type MutationResponse struct {
	OK          bool           `json:"ok"`
	ServerState *models.Entity `json:"serverState"`
}

// CreateEntityRequest is the request body for creating an entity.
type CreateEntityRequest = entityservice.CreateEntityInput

// EntityListResponse wraps paginated entity listings.
type EntityListResponse struct {
	Entities []entityservice.EntityListItem `json:"entities"`
	Total    int                            `json:"total"`
}
