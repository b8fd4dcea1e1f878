// Package storage defines the policy directory abstraction.
package storage

import "github.com/starford/navgate/internal/models"

// Provider is the interface for policy file operations.
type Provider interface {
	// List returns metadata for every policy file under dir (relative to root).
	List(dir string) ([]models.PolicyMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to root).
	Delete(path string) error
}
