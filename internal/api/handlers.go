package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/navgate/internal/access"
	"github.com/starford/navgate/internal/checksum"
	"github.com/starford/navgate/internal/navservice"
	"github.com/starford/navgate/internal/policy"
)

// Streamer serves SSE streams.
type Streamer interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
	ServeTopic(w http.ResponseWriter, r *http.Request, topic string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *navservice.Service
	stream Streamer
}

// NewHandler creates a new Handler.
func NewHandler(svc *navservice.Service, stream Streamer) *Handler {
	return &Handler{svc: svc, stream: stream}
}

func pathParam(r *http.Request) string {
	p := r.URL.Query().Get("path")
	if p == "" {
		return "/"
	}
	return p
}

// Menu handles GET /api/menu.
//
//	@Summary		Get the full menu definition
//	@Tags			navigation
//	@Produce		json
//	@Success		200	{array}	menu.Node
//	@Router			/menu [get]
func (h *Handler) Menu(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Menu())
}

// Navigation handles GET /api/nav.
//
//	@Summary		Get the navigation view of the caller at a path
//	@Tags			navigation
//	@Produce		json
//	@Param			path	query		string	false	"Current location"	default(/)
//	@Param			session	query		string	false	"Disclosure session id"
//	@Success		200		{object}	nav.View
//	@Failure		404		{object}	errResponse
//	@Router			/nav [get]
func (h *Handler) Navigation(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromContext(r.Context())
	v, err := h.svc.Navigation(r.Context(), actor, pathParam(r), r.URL.Query().Get("session"))
	if err != nil {
		writeError(w, "navigation", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Breadcrumbs handles GET /api/breadcrumbs.
//
//	@Summary		Get the breadcrumb trail of a path
//	@Tags			navigation
//	@Produce		json
//	@Param			path	query	string	false	"Current location"	default(/)
//	@Success		200		{array}	nav.RenderedCrumb
//	@Router			/breadcrumbs [get]
func (h *Handler) Breadcrumbs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Breadcrumbs(r.Context(), pathParam(r)))
}

// Capabilities handles GET /api/capabilities.
//
//	@Summary		Get the caller's capability set
//	@Tags			navigation
//	@Produce		json
//	@Success		200	{object}	CapabilitiesResponse
//	@Router			/capabilities [get]
func (h *Handler) Capabilities(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromContext(r.Context())
	resp := CapabilitiesResponse{Actor: actor, Permissions: []string{}}
	cs := h.svc.Capabilities(r.Context(), actor)
	resp.Superuser = cs.IsSuperuser()
	if g, ok := cs.(access.Grants); ok {
		resp.Permissions = g.Permissions()
	}
	writeJSON(w, http.StatusOK, resp)
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Mount a navigation bar and get its disclosure session
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	SessionInfo
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.svc.OpenSession(r.Context(), ActorFromContext(r.Context())))
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get a disclosure session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionInfo
//	@Failure		404	{object}	errResponse
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.SessionInfo(r.Context(), ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// SessionEvent handles POST /api/sessions/{id}/events.
//
//	@Summary		Report an interaction to a disclosure session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		EventRequest	true	"Interaction"
//	@Success		200		{object}	EventResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/sessions/{id}/events [post]
func (h *Handler) SessionEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var ev EventRequest
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Dispatch(r.Context(), ActorFromContext(r.Context()), chi.URLParam(r, "id"), ev)
	if err != nil {
		writeError(w, "dispatch", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Unmount a navigation bar
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(r.Context(), ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SessionStream handles GET /api/sessions/{id}/stream.
//
//	@Summary		Stream disclosure and navigation events of a session (SSE)
//	@Tags			sessions
//	@Produce		text/event-stream
//	@Param			id	path	string	true	"Session id"
//	@Failure		404	{object}	errResponse
//	@Router			/sessions/{id}/stream [get]
func (h *Handler) SessionStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Session(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		writeError(w, "session stream", err)
		return
	}
	h.stream.ServeTopic(w, r, id)
}

// ListPolicies handles GET /api/policies.
//
//	@Summary		List indexed policies
//	@Tags			policies
//	@Produce		json
//	@Success		200	{object}	PolicyListResponse
//	@Router			/policies [get]
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListPolicies(r.Context())
	if err != nil {
		writeError(w, "list policies", err)
		return
	}
	writeJSON(w, http.StatusOK, PolicyListResponse{Policies: items})
}

// GetPolicy handles GET /api/policies/{actor}.
//
//	@Summary		Get the policy of an actor
//	@Tags			policies
//	@Produce		json
//	@Param			actor	path		string	true	"Actor"
//	@Success		200		{object}	PolicyDetail
//	@Failure		404		{object}	errResponse
//	@Router			/policies/{actor} [get]
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetPolicy(r.Context(), chi.URLParam(r, "actor"))
	if err != nil {
		writeError(w, "get policy", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// PutPolicy handles PUT /api/policies/{actor}.
//
//	@Summary		Create or replace the policy of an actor
//	@Tags			policies
//	@Accept			json
//	@Produce		json
//	@Param			actor		path		string				true	"Actor"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		PutPolicyRequest	true	"Policy"
//	@Success		200			{object}	PolicyDetail
//	@Success		201			{object}	PolicyDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Router			/policies/{actor} [put]
func (h *Handler) PutPolicy(w http.ResponseWriter, r *http.Request) {
	actor := chi.URLParam(r, "actor")
	if !policy.ValidActor(actor) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid actor"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PutPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	ifMatch := checksum.FromETag(r.Header.Get("If-Match"))

	doc := policy.Document{Actor: actor, Superuser: req.Superuser, Permissions: req.Permissions}
	d, created, err := h.svc.PutPolicy(r.Context(), actor, doc, ifMatch)
	if err != nil {
		writeError(w, "put policy", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, status, d)
}

// DeletePolicy handles DELETE /api/policies/{actor}.
//
//	@Summary		Delete the policy of an actor
//	@Tags			policies
//	@Param			actor	path	string	true	"Actor"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Router			/policies/{actor} [delete]
func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePolicy(r.Context(), chi.URLParam(r, "actor")); err != nil {
		writeError(w, "delete policy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Holders handles GET /api/permissions/{permission}/holders.
//
//	@Summary		List the actors holding a permission
//	@Tags			policies
//	@Produce		json
//	@Param			permission	path		string	true	"Permission id"
//	@Success		200			{object}	HoldersResponse
//	@Router			/permissions/{permission}/holders [get]
func (h *Handler) Holders(w http.ResponseWriter, r *http.Request) {
	perm := chi.URLParam(r, "permission")
	holders, err := h.svc.Holders(r.Context(), perm)
	if err != nil {
		writeError(w, "holders", err)
		return
	}
	writeJSON(w, http.StatusOK, HoldersResponse{Permission: perm, Holders: holders})
}

// requireSuperuser rejects callers that are not superusers.
func (h *Handler) requireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.svc.Capabilities(r.Context(), ActorFromContext(r.Context())).IsSuperuser() {
			writeJSON(w, http.StatusForbidden, errorBody("forbidden"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
