package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/Togather-Foundation/eventdesk/internal/storage"
)

// EventRepository keeps events in a map guarded by a read/write lock. IDs come
// from a counter that only moves forward, so deleted IDs are never handed out
// again.
type EventRepository struct {
	mu     sync.RWMutex
	events map[int64]events.Event
	seq    atomic.Int64
}

var (
	_ events.Repository     = (*EventRepository)(nil)
	_ storage.StatusCounter = (*EventRepository)(nil)
)

func NewEventRepository() *EventRepository {
	return &EventRepository{events: make(map[int64]events.Event)}
}

// Save inserts events with a zero ID and updates stored ones. A non-zero ID
// that is not stored returns ErrNotFound.
func (r *EventRepository) Save(ctx context.Context, event events.Event) (events.Event, error) {
	if err := ctx.Err(); err != nil {
		return events.Event{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == 0 {
		event.ID = r.seq.Add(1)
	} else if _, ok := r.events[event.ID]; !ok {
		// An update never brings a deleted event back.
		return events.Event{}, events.NotFoundError{ID: event.ID, Reason: events.ReasonMissing}
	}
	r.events[event.ID] = event.Clone()
	return event.Clone(), nil
}

func (r *EventRepository) FindByID(ctx context.Context, id int64) (events.Event, error) {
	if err := ctx.Err(); err != nil {
		return events.Event{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[id]
	if !ok {
		return events.Event{}, events.ErrNotFound
	}
	return event.Clone(), nil
}

func (r *EventRepository) FindAll(ctx context.Context) ([]events.Event, error) {
	return r.list(ctx, func(events.Event) bool { return true })
}

func (r *EventRepository) FindByStatus(ctx context.Context, status events.Status) ([]events.Event, error) {
	return r.list(ctx, func(e events.Event) bool {
		return matchStatus(e, status)
	})
}

func (r *EventRepository) FindByCreatedBy(ctx context.Context, subject string) ([]events.Event, error) {
	return r.list(ctx, func(e events.Event) bool {
		return e.CreatedBy == subject
	})
}

func (r *EventRepository) FindByCreatedByAndStatus(ctx context.Context, subject string, status events.Status) ([]events.Event, error) {
	return r.list(ctx, func(e events.Event) bool {
		return e.CreatedBy == subject && matchStatus(e, status)
	})
}

func (r *EventRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	return nil
}

// CountByStatus reports the number of stored events per status. Every status
// is present in the result, zero or not.
func (r *EventRepository) CountByStatus(ctx context.Context) (map[events.Status]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make(map[events.Status]int, len(events.Statuses))
	for _, status := range events.Statuses {
		counts[status] = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, event := range r.events {
		counts[event.Status]++
	}
	return counts, nil
}

func (r *EventRepository) list(ctx context.Context, match func(events.Event) bool) ([]events.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]events.Event, 0, len(r.events))
	for _, event := range r.events {
		if match(event) {
			out = append(out, event.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchStatus(event events.Event, status events.Status) bool {
	return status == "" || event.Status == status
}
