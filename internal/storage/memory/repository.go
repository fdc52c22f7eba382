// Package memory implements the storage contracts with process-local maps.
// Nothing survives a restart.
package memory

import (
	"context"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/Togather-Foundation/eventdesk/internal/storage"
)

// Repository implements storage.Repository in memory.
type Repository struct {
	events *EventRepository
}

var _ storage.Repository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{events: NewEventRepository()}
}

// Events returns the events repository
func (r *Repository) Events() events.Repository {
	return r.events
}

// EventStore exposes the concrete store for callers that need its extras.
func (r *Repository) EventStore() *EventRepository {
	return r.events
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}
