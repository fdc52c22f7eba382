package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/sanitize"
	"github.com/rs/zerolog"
)

// Service is the event lifecycle engine. It checks the caller's
// capabilities, ownership and the event status before every change.
type Service struct {
	repo     Repository
	perms    auth.Matrix
	now      func() time.Time
	recorder Recorder
	logger   zerolog.Logger

	clearRejectionReason bool
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRecorder(recorder Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.With().Str("component", "events").Logger()
	}
}

// WithClearRejectionReason controls whether submitting a REJECTED event
// drops its previous rejection reason.
func WithClearRejectionReason(clear bool) Option {
	return func(s *Service) {
		s.clearRejectionReason = clear
	}
}

func NewService(repo Repository, perms auth.Matrix, opts ...Option) *Service {
	s := &Service{
		repo:                 repo,
		perms:                perms,
		now:                  time.Now,
		logger:               zerolog.Nop(),
		clearRejectionReason: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPublic returns approved events only.
func (s *Service) ListPublic(ctx context.Context) ([]Event, error) {
	return s.repo.FindByStatus(ctx, StatusApproved)
}

// GetPublic returns an approved event. Events in any other status are
// reported as not found.
func (s *Service) GetPublic(ctx context.Context, id int64) (Event, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if event.Status != StatusApproved {
		return Event{}, NotFoundError{ID: id, Reason: ReasonNotApproved}
	}
	return event, nil
}

// List returns the events visible to actor. Admins see every event,
// everyone else only their own. A zero status matches all statuses.
func (s *Service) List(ctx context.Context, actor Actor, status Status) ([]Event, error) {
	if actor.Admin {
		return s.repo.FindByStatus(ctx, status)
	}
	return s.repo.FindByCreatedByAndStatus(ctx, actor.Subject, status)
}

// Get returns one event if actor may see it. An event owned by someone else
// is reported exactly like a missing one.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (Event, error) {
	event, err := s.find(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if !actor.Admin && !actor.owns(event) {
		return Event{}, NotFoundError{ID: id, Reason: ReasonNotOwned}
	}
	return event, nil
}

func (s *Service) Create(ctx context.Context, actor Actor, params CreateParams) (event Event, err error) {
	defer func() {
		s.record(ctx, Outcome{Action: ActionCreate, Actor: actor, EventID: event.ID, To: event.Status, Err: err})
	}()

	if err := s.require(actor, ActionCreate, auth.CapCreate); err != nil {
		return Event{}, err
	}

	title := sanitize.Text(params.Title)
	if strings.TrimSpace(title) == "" {
		return Event{}, ValidationError{Field: "title", Message: "is required"}
	}
	if err := validateDates(params.StartAt, params.EndAt); err != nil {
		return Event{}, err
	}

	saved, err := s.repo.Save(ctx, Event{
		Title:       strings.TrimSpace(title),
		Description: sanitize.HTML(params.Description),
		StartAt:     cloneTime(params.StartAt),
		EndAt:       cloneTime(params.EndAt),
		Status:      StatusDraft,
		CreatedBy:   actor.Subject,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return Event{}, fmt.Errorf("save event: %w", err)
	}
	return saved, nil
}

// Patch applies a partial update. Nothing is written unless every supplied
// field passes validation.
func (s *Service) Patch(ctx context.Context, actor Actor, id int64, params PatchParams) (event Event, err error) {
	var from Status
	defer func() {
		s.record(ctx, Outcome{Action: ActionPatch, Actor: actor, EventID: id, From: from, To: event.Status, Err: err})
	}()

	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return Event{}, err
	}
	from = current.Status
	if err := s.canEdit(actor, current); err != nil {
		return Event{}, err
	}

	updated := current.Clone()
	if params.Title != nil {
		if title := strings.TrimSpace(sanitize.Text(*params.Title)); title != "" {
			updated.Title = title
		}
	}
	if params.Description != nil {
		updated.Description = sanitize.HTML(*params.Description)
	}
	if params.StartAt != nil && params.EndAt != nil {
		if err := validateDates(params.StartAt, params.EndAt); err != nil {
			return Event{}, err
		}
		updated.StartAt = cloneTime(params.StartAt)
		updated.EndAt = cloneTime(params.EndAt)
	}

	return s.save(ctx, updated)
}

func (s *Service) Submit(ctx context.Context, actor Actor, id int64) (event Event, err error) {
	var from Status
	defer func() {
		s.record(ctx, Outcome{Action: ActionSubmit, Actor: actor, EventID: id, From: from, To: event.Status, Err: err})
	}()

	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return Event{}, err
	}
	from = current.Status
	if err := s.canSubmit(actor, current); err != nil {
		return Event{}, err
	}
	next, err := checkTransition(ActionSubmit, current)
	if err != nil {
		return Event{}, err
	}

	updated := current.Clone()
	updated.Status = next
	if s.clearRejectionReason {
		updated.RejectionReason = ""
	}
	return s.save(ctx, updated)
}

func (s *Service) Approve(ctx context.Context, actor Actor, id int64) (event Event, err error) {
	var from Status
	defer func() {
		s.record(ctx, Outcome{Action: ActionApprove, Actor: actor, EventID: id, From: from, To: event.Status, Err: err})
	}()

	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return Event{}, err
	}
	from = current.Status
	if err := s.require(actor, ActionApprove, auth.CapApprove); err != nil {
		return Event{}, err
	}
	next, err := checkTransition(ActionApprove, current)
	if err != nil {
		return Event{}, err
	}

	approvedAt := s.now().UTC()
	updated := current.Clone()
	updated.Status = next
	updated.ApprovedBy = actor.Subject
	updated.ApprovedAt = &approvedAt
	return s.save(ctx, updated)
}

func (s *Service) Reject(ctx context.Context, actor Actor, id int64, reason string) (event Event, err error) {
	var from Status
	defer func() {
		s.record(ctx, Outcome{Action: ActionReject, Actor: actor, EventID: id, From: from, To: event.Status, Err: err})
	}()

	reason = strings.TrimSpace(sanitize.Text(reason))
	if reason == "" {
		return Event{}, ValidationError{Field: "reason", Message: "is required"}
	}

	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return Event{}, err
	}
	from = current.Status
	if err := s.require(actor, ActionReject, auth.CapReject); err != nil {
		return Event{}, err
	}
	next, err := checkTransition(ActionReject, current)
	if err != nil {
		return Event{}, err
	}

	updated := current.Clone()
	updated.Status = next
	updated.RejectionReason = reason
	return s.save(ctx, updated)
}

// Delete removes an event in any status. Only the delete capability is
// checked; ownership does not matter.
func (s *Service) Delete(ctx context.Context, actor Actor, id int64) (err error) {
	var from Status
	defer func() {
		s.record(ctx, Outcome{Action: ActionDelete, Actor: actor, EventID: id, From: from, Err: err})
	}()

	current, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	from = current.Status
	if err := s.require(actor, ActionDelete, auth.CapDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return nil
}

func (s *Service) find(ctx context.Context, id int64) (Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Event{}, NotFoundError{ID: id, Reason: ReasonMissing}
	}
	if err != nil {
		return Event{}, fmt.Errorf("find event %d: %w", id, err)
	}
	return event, nil
}

func (s *Service) save(ctx context.Context, event Event) (Event, error) {
	saved, err := s.repo.Save(ctx, event)
	if err != nil {
		return Event{}, fmt.Errorf("save event %d: %w", event.ID, err)
	}
	return saved, nil
}

func (s *Service) record(ctx context.Context, outcome Outcome) {
	entry := s.logger.Debug()
	if outcome.Err != nil {
		entry = entry.Err(outcome.Err)
	}
	entry.
		Str("action", string(outcome.Action)).
		Str("subject", outcome.Actor.Subject).
		Bool("admin", outcome.Actor.Admin).
		Int64("event_id", outcome.EventID).
		Str("from", string(outcome.From)).
		Str("to", string(outcome.To)).
		Msg("event operation")

	if s.recorder != nil {
		s.recorder.Record(ctx, outcome)
	}
}

func validateDates(startAt, endAt *time.Time) error {
	if startAt != nil && endAt != nil && startAt.After(*endAt) {
		return ValidationError{Field: "startAt", Message: "must not be after endAt"}
	}
	return nil
}
