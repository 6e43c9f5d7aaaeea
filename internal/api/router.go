package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/entityservice"
)

// RouterConfig controls auth, limiting and event streaming of the API.
type RouterConfig struct {
	AuthEnabled bool
	Token       string
	// RequestsPerSecond and Burst limit POST /mutations; zero disables it.
	RequestsPerSecond float64
	Burst             int
	// Events, if non-nil, is mounted at GET /events and notified of
	// applied mutations when it also implements Publisher.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *entityservice.Service, cfg RouterConfig) chi.Router {
	var pub Publisher
	if p, ok := cfg.Events.(Publisher); ok {
		pub = p
	}
	h := NewHandler(svc, pub)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	r.With(RateLimitMiddleware(cfg.RequestsPerSecond, cfg.Burst)).Post(MutationsRoute, h.ApplyMutation)

	r.Get("/entities", h.ListEntities)
	r.Post("/entities", h.CreateEntity)
	r.Get("/entities/{id}", h.GetEntity)

	r.Get("/teams/{slug}", h.GetTeam)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}

// MutationsRoute is the mutation endpoint relative to the API mount point.
const MutationsRoute = "/mutations"
