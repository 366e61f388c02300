package alert

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no alert with the given id exists.
var ErrNotFound = errors.New("alert not found")

// ErrTenantRequired is returned when an operation is attempted without a
// tenant scope.
var ErrTenantRequired = errors.New("tenant id is required")

// Store is the persistence interface for alerts. List is scoped by tenant
// through the filter; Acknowledge looks up by id alone — tenant-level
// authorization is the caller's responsibility.
type Store interface {
	Insert(ctx context.Context, a *Alert) error
	// Acknowledge atomically sets the acknowledgment triple on the alert
	// with the given id, reporting whether a row was found.
	Acknowledge(ctx context.Context, id, userID string, at time.Time) (bool, error)
	// List returns alerts matching the filter, ordered by CreatedAt
	// descending. An empty result is not an error.
	List(ctx context.Context, f ListFilter) ([]*Alert, error)
}

// Notifier receives synthesized storm meta-alerts. Notification failures are
// logged, never propagated.
type Notifier interface {
	Send(ctx context.Context, a *Alert) error
}
