package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/rs/zerolog"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

// Entry is one audit record. It is logged as a nested "audit" object.
type Entry struct {
	Timestamp    time.Time         `json:"timestamp"`
	Action       string            `json:"action"`
	Actor        string            `json:"actor"`
	Admin        bool              `json:"admin"`
	ResourceType string            `json:"resource_type,omitempty"`
	ResourceID   string            `json:"resource_id,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	RequestID    string            `json:"request_id,omitempty"`
	Status       string            `json:"status"`
	Details      map[string]string `json:"details,omitempty"`
}

// Logger writes audit entries through zerolog.
type Logger struct {
	logger zerolog.Logger
	now    func() time.Time
}

func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
		now:    time.Now,
	}
}

var _ events.Recorder = (*Logger)(nil)

func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error().Err(err).Str("action", entry.Action).Msg("failed to marshal audit entry")
		return
	}
	l.logger.Info().RawJSON("audit", data).Msg("audit")
}

// Record turns an engine outcome into an audit entry. Request metadata comes
// from ctx when WithRequest was applied upstream.
func (l *Logger) Record(ctx context.Context, outcome events.Outcome) {
	meta := RequestFromContext(ctx)
	entry := Entry{
		Action:       "event." + string(outcome.Action),
		Actor:        outcome.Actor.Subject,
		Admin:        outcome.Actor.Admin,
		ResourceType: "event",
		IPAddress:    meta.ClientIP,
		RequestID:    meta.RequestID,
		Status:       status(outcome.Err),
	}
	if outcome.EventID != 0 {
		entry.ResourceID = strconv.FormatInt(outcome.EventID, 10)
	}

	details := map[string]string{}
	if outcome.From != "" {
		details["from"] = string(outcome.From)
	}
	if outcome.To != "" {
		details["to"] = string(outcome.To)
	}
	if outcome.Err != nil {
		details["error"] = outcome.Err.Error()
	}
	if len(details) > 0 {
		entry.Details = details
	}

	l.Log(entry)
}

func status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, events.ErrPermissionDenied):
		return StatusDenied
	default:
		return StatusFailure
	}
}

// RequestInfo is the request metadata attached to audit entries.
type RequestInfo struct {
	RequestID string
	ClientIP  string
}

type contextKey string

const requestInfoKey contextKey = "auditRequest"

func WithRequest(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

func RequestFromContext(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info, _ := ctx.Value(requestInfoKey).(RequestInfo)
	return info
}
