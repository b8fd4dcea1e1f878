package api

import (
	"github.com/starford/navgate/internal/models"
	"github.com/starford/navgate/internal/navservice"
)

// PutPolicyRequest is the request body for creating or replacing a policy.
type PutPolicyRequest struct {
	Superuser   bool     `json:"superuser" example:"false"`
	Permissions []string `json:"permissions" example:"view_tenant,view_lease"`
}

// CapabilitiesResponse describes the caller's capability set.
type CapabilitiesResponse struct {
	Actor       string   `json:"actor" example:"alice"`
	Superuser   bool     `json:"superuser"`
	Permissions []string `json:"permissions" validate:"required"`
}

// HoldersResponse lists the actors holding a permission.
type HoldersResponse struct {
	Permission string   `json:"permission" example:"view_lease" validate:"required"`
	Holders    []string `json:"holders" validate:"required"`
}

// PolicyListResponse wraps the indexed policies.
type PolicyListResponse struct {
	Policies []models.Actor `json:"policies" validate:"required"`
}

// PolicyDetail is the policy response type (aliased from the domain layer).
type PolicyDetail = navservice.PolicyDetail

// SessionInfo is the session response type (aliased from the domain layer).
type SessionInfo = navservice.SessionInfo

// EventRequest is the body of POST /sessions/{id}/events.
type EventRequest = navservice.Event

// EventResponse is the session state after an event.
type EventResponse = navservice.DispatchResult
