package storage

import (
	"context"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
)

// Repository groups data access by domain.
type Repository interface {
	Events() events.Repository

	// Ping reports whether the backend can serve requests.
	Ping(ctx context.Context) error
}

// StatusCounter is implemented by stores that can report how many events sit
// in each status without copying them.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[events.Status]int, error)
}
