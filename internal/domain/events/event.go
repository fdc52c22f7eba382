package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
)

type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// ParseStatus accepts a status name in any case. An empty value is the
// zero Status, which filters match as "any status".
func ParseStatus(value string) (Status, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	status := Status(value)
	if !status.Valid() {
		return "", ValidationError{Field: "status", Message: fmt.Sprintf("unsupported status %q", value)}
	}
	return status, nil
}

type Event struct {
	ID              int64
	Title           string
	Description     string
	StartAt         *time.Time
	EndAt           *time.Time
	Status          Status
	CreatedBy       string
	CreatedAt       time.Time
	ApprovedBy      string
	ApprovedAt      *time.Time
	RejectionReason string
}

// Clone returns a copy that shares no pointers with e.
func (e Event) Clone() Event {
	out := e
	out.StartAt = cloneTime(e.StartAt)
	out.EndAt = cloneTime(e.EndAt)
	out.ApprovedAt = cloneTime(e.ApprovedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Actor is the authenticated identity behind a management call.
type Actor struct {
	Subject string
	Admin   bool
}

// Role picks the permission matrix row for the actor.
func (a Actor) Role() auth.Role {
	if a.Admin {
		return auth.RoleAdmin
	}
	return auth.RoleCollaborator
}

func (a Actor) owns(event Event) bool {
	return a.Subject != "" && event.CreatedBy == a.Subject
}

type CreateParams struct {
	Title       string
	Description string
	StartAt     *time.Time
	EndAt       *time.Time
}

// PatchParams holds a partial update. Nil fields are left unchanged; dates
// are only applied when both are present.
type PatchParams struct {
	Title       *string
	Description *string
	StartAt     *time.Time
	EndAt       *time.Time
}
