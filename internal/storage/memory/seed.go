package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
)

const (
	SeedOwner    = "collab"
	SeedApprover = "admin"
)

// SeedEvents returns the sample events loaded in development: one per status,
// all owned by SeedOwner and starting a few days after now.
func SeedEvents(now time.Time) []events.Event {
	now = now.UTC()
	days := func(n int) *time.Time {
		t := now.AddDate(0, 0, n)
		return &t
	}
	approvedAt := now

	return []events.Event{
		{
			Title:       "Approved event (seed)",
			Description: "Visible on the public API.",
			StartAt:     days(7),
			Status:      events.StatusApproved,
			CreatedBy:   SeedOwner,
			CreatedAt:   now,
			ApprovedBy:  SeedApprover,
			ApprovedAt:  &approvedAt,
		},
		{
			Title:       "Pending event (seed)",
			Description: "Hidden from the public API.",
			StartAt:     days(10),
			Status:      events.StatusPendingApproval,
			CreatedBy:   SeedOwner,
			CreatedAt:   now,
		},
		{
			Title:       "Draft event (seed)",
			Description: "Editable by its creator.",
			StartAt:     days(12),
			Status:      events.StatusDraft,
			CreatedBy:   SeedOwner,
			CreatedAt:   now,
		},
		{
			Title:           "Rejected event (seed)",
			Description:     "Can be submitted for approval again.",
			StartAt:         days(15),
			Status:          events.StatusRejected,
			CreatedBy:       SeedOwner,
			CreatedAt:       now,
			RejectionReason: "Missing details.",
		},
	}
}

// Seed saves the sample events into repo and returns them with their IDs.
func Seed(ctx context.Context, repo events.Repository, now time.Time) ([]events.Event, error) {
	seeds := SeedEvents(now)
	saved := make([]events.Event, 0, len(seeds))
	for _, event := range seeds {
		out, err := repo.Save(ctx, event)
		if err != nil {
			return nil, fmt.Errorf("seed %q: %w", event.Title, err)
		}
		saved = append(saved, out)
	}
	return saved, nil
}
