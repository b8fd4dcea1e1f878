package index

import "github.com/starford/navgate/internal/access"

// PolicyIndex defines the interface for policy indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PolicyIndex interface {
	UpsertPolicy(p PolicyRow) error
	DeletePolicy(path string) (string, error)
	GetChecksum(path string) (string, error)
	ActorAt(path string) (string, error)
	GetPolicy(actor string) (*PolicyRow, error)
	ListActors() ([]PolicyRow, error)
	Capabilities(actor string) (access.Grants, error)
	Holders(permission string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies PolicyIndex at compile time.
var _ PolicyIndex = (*DB)(nil)
