package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/entityservice"
)

// Publisher receives a notification for every applied mutation.
type Publisher interface {
	PublishMutation(operation, entityID string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *entityservice.Service
	events Publisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *entityservice.Service, events Publisher) *Handler {
	return &Handler{svc: svc, events: events}
}

// ApplyMutation handles POST /api/mutations.
//
//	@Summary		Apply one mutation and return the refreshed entity
//	@Tags			mutations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MutationRequest	true	"Mutation"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/mutations [post]
func (h *Handler) ApplyMutation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	e, err := h.svc.Apply(r.Context(), req)
	if err != nil {
		slog.Debug("mutation rejected",
			slog.String("operation", string(req.Operation)),
			slog.String("entity_id", req.EntityID),
			slog.String("error", err.Error()))
		writeError(w, "apply mutation", err)
		return
	}
	if h.events != nil {
		h.events.PublishMutation(string(req.Operation), req.EntityID)
	}
	writeJSON(w, http.StatusOK, MutationResponse{OK: true, ServerState: e})
}

// ListEntities handles GET /api/entities.
//
//	@Summary		List entities with optional pagination and tag filter
//	@Tags			entities
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	EntityListResponse
//	@Security		BearerAuth
//	@Router			/entities [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListEntities(r.Context(), limit, offset, q.Get("tag"))
	if err != nil {
		writeError(w, "list entities", err)
		return
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Entities: items, Total: total})
}

// GetEntity handles GET /api/entities/{id}. The response carries an ETag;
// a matching If-None-Match yields 304.
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get entity", err)
		return
	}
	if tag, err := checksum.ETag(e); err == nil {
		w.Header().Set("ETag", tag)
		if r.Header.Get("If-None-Match") == tag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, e)
}

// CreateEntity handles POST /api/entities.
//
//	@Summary		Create a source, project source or media entity
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEntityRequest	true	"Entity to create"
//	@Success		201		{object}	models.Entity
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities [post]
func (h *Handler) CreateEntity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	e, err := h.svc.CreateEntity(r.Context(), req)
	if err != nil {
		writeError(w, "create entity", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// GetTeam handles GET /api/teams/{slug}.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTeam(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "get team", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
