package events

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
)

var (
	ErrNotFound          = errors.New("event not found")
	ErrInvalidInput      = errors.New("invalid event input")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// NotFoundReason records why an event was reported missing. It is kept for
// logs only; callers see the same error either way.
type NotFoundReason string

const (
	ReasonMissing     NotFoundReason = "missing"
	ReasonNotOwned    NotFoundReason = "not_owned"
	ReasonNotApproved NotFoundReason = "not_approved"
)

type NotFoundError struct {
	ID     int64
	Reason NotFoundReason
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("event %d not found", e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

type PermissionError struct {
	Action     Action
	Capability auth.Capability
}

func (e PermissionError) Error() string {
	return fmt.Sprintf("you do not have permission to %s this event", e.Action)
}

func (e PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

type TransitionError struct {
	Action  Action
	ID      int64
	From    Status
	Allowed []Status
}

func (e TransitionError) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, status := range e.Allowed {
		allowed = append(allowed, string(status))
	}
	return fmt.Sprintf("cannot %s event %d in status %s: allowed from %s", e.Action, e.ID, e.From, strings.Join(allowed, " or "))
}

func (e TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
