package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/navgate/internal/navservice"
)

// NewRouter creates a chi router with all API routes mounted.
// stream, if non-nil, serves GET /events and the per-session streams.
// When auth is enabled the policy routes, the permission routes and the
// broadcast feed are reserved for superusers.
func NewRouter(svc *navservice.Service, auth Auth, stream Streamer) chi.Router {
	h := NewHandler(svc, stream)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	// Navigation.
	r.Get("/menu", h.Menu)
	r.Get("/nav", h.Navigation)
	r.Get("/breadcrumbs", h.Breadcrumbs)
	r.Get("/capabilities", h.Capabilities)

	// Disclosure sessions.
	r.Post("/sessions", h.OpenSession)
	r.Get("/sessions/{id}", h.GetSession)
	r.Post("/sessions/{id}/events", h.SessionEvent)
	r.Delete("/sessions/{id}", h.CloseSession)
	if stream != nil {
		r.Get("/sessions/{id}/stream", h.SessionStream)
	}

	// Policies and the policy change feed.
	r.Group(func(r chi.Router) {
		if auth.Enabled {
			r.Use(h.requireSuperuser)
		}
		if stream != nil {
			r.Get("/events", stream.ServeHTTP)
		}
		r.Get("/policies", h.ListPolicies)
		r.Get("/policies/{actor}", h.GetPolicy)
		r.Put("/policies/{actor}", h.PutPolicy)
		r.Delete("/policies/{actor}", h.DeletePolicy)
		r.Get("/permissions/{permission}/holders", h.Holders)
	})

	return r
}
