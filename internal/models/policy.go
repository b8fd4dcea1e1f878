// Package models defines the domain types shared across navgate packages.
package models

import "time"

// PolicyMetadata is a lightweight representation returned by list operations.
type PolicyMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is an indexed policy as returned by the API.
type Actor struct {
	Actor       string    `json:"actor"`
	Path        string    `json:"path"`
	Superuser   bool      `json:"superuser"`
	Permissions []string  `json:"permissions"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}
