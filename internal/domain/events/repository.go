package events

import "context"

// Repository is the event store contract. Implementations return copies;
// mutating a returned Event never changes stored state. All list methods
// order by ascending ID. A zero Status matches every status.
type Repository interface {
	// Save assigns the next ID when event.ID is zero. Otherwise it updates
	// the stored event and returns ErrNotFound when the ID is absent.
	Save(ctx context.Context, event Event) (Event, error)
	// FindByID returns ErrNotFound when no event has the ID.
	FindByID(ctx context.Context, id int64) (Event, error)
	FindAll(ctx context.Context) ([]Event, error)
	FindByStatus(ctx context.Context, status Status) ([]Event, error)
	FindByCreatedBy(ctx context.Context, subject string) ([]Event, error)
	FindByCreatedByAndStatus(ctx context.Context, subject string, status Status) ([]Event, error)
	// DeleteByID is a no-op when the ID is absent.
	DeleteByID(ctx context.Context, id int64) error
}

// Recorder observes the outcome of every engine operation.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome)
}

// Outcome describes one attempted operation. Err is nil on success.
type Outcome struct {
	Action  Action
	Actor   Actor
	EventID int64
	From    Status
	To      Status
	Err     error
}

// Recorders fans an outcome out to several recorders.
type Recorders []Recorder

func (r Recorders) Record(ctx context.Context, outcome Outcome) {
	for _, recorder := range r {
		if recorder != nil {
			recorder.Record(ctx, outcome)
		}
	}
}
