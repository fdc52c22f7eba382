package events

import "github.com/Togather-Foundation/eventdesk/internal/auth"

type Action string

const (
	ActionCreate  Action = "create"
	ActionPatch   Action = "patch"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionDelete  Action = "delete"
)

type transition struct {
	from []Status
	to   Status
}

// transitions holds the status-changing actions. Create, patch and delete
// are not status transitions and are absent.
var transitions = map[Action]transition{
	ActionSubmit:  {from: []Status{StatusDraft, StatusRejected}, to: StatusPendingApproval},
	ActionApprove: {from: []Status{StatusPendingApproval}, to: StatusApproved},
	ActionReject:  {from: []Status{StatusPendingApproval}, to: StatusRejected},
}

// CanTransition reports whether action may run on an event in status from.
func CanTransition(action Action, from Status) bool {
	t, ok := transitions[action]
	if !ok {
		return false
	}
	for _, allowed := range t.from {
		if allowed == from {
			return true
		}
	}
	return false
}

func checkTransition(action Action, event Event) (Status, error) {
	t, ok := transitions[action]
	if !ok || !CanTransition(action, event.Status) {
		return "", TransitionError{Action: action, ID: event.ID, From: event.Status, Allowed: t.from}
	}
	return t.to, nil
}

// editable reports whether status allows a non-admin owner to edit.
func editable(status Status) bool {
	return status == StatusDraft || status == StatusRejected
}

func (s *Service) permissions(actor Actor) auth.Permissions {
	return s.perms.For(actor.Role())
}

func (s *Service) require(actor Actor, action Action, capability auth.Capability) error {
	if !s.permissions(actor).Allows(capability) {
		return PermissionError{Action: action, Capability: capability}
	}
	return nil
}

// canEdit applies the patch rule: admins need edit-any and may edit in any
// status; everyone else must own the event, hold edit-own, and find it in
// DRAFT or REJECTED.
func (s *Service) canEdit(actor Actor, event Event) error {
	perms := s.permissions(actor)
	if actor.Admin {
		if !perms.CanEditAny {
			return PermissionError{Action: ActionPatch, Capability: auth.CapEditAny}
		}
		return nil
	}
	if !perms.CanEditOwnDraftOrRejected || !actor.owns(event) || !editable(event.Status) {
		return PermissionError{Action: ActionPatch, Capability: auth.CapEditOwnDraftOrRejected}
	}
	return nil
}

func (s *Service) canSubmit(actor Actor, event Event) error {
	if err := s.require(actor, ActionSubmit, auth.CapSubmitForApproval); err != nil {
		return err
	}
	if !actor.Admin && !actor.owns(event) {
		return PermissionError{Action: ActionSubmit, Capability: auth.CapSubmitForApproval}
	}
	return nil
}
