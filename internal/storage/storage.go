package storage

import (
	"context"

	"github.com/bcnelson/dyndns/internal/domain"
)

// Storage is the host record store.
// Implementations must be safe for concurrent use, and each mutating call
// must be atomic on its own. No call spans more than one row.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// GetHost looks up a record by name. A missing record is not an error:
	// it is reported as (nil, false, nil).
	GetHost(ctx context.Context, name string) (*domain.HostRecord, bool, error)

	// InsertHost creates a record with both timestamps set to now.
	// Returns domain.ErrAlreadyExists if the name is taken.
	InsertHost(ctx context.Context, name, address string) error

	// UpdateHostAddress sets the address and both timestamps to now.
	// Returns domain.ErrNotFound if the name is absent.
	UpdateHostAddress(ctx context.Context, name, address string) error

	// TouchHost sets the last touched timestamp to now.
	// Returns domain.ErrNotFound if the name is absent.
	TouchHost(ctx context.Context, name string) error

	// ListHosts returns every record ordered by name.
	ListHosts(ctx context.Context) ([]*domain.HostRecord, error)
}
