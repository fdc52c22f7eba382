package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) Entry {
	t.Helper()
	var wrapper map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &wrapper))

	raw, ok := wrapper["audit"]
	require.True(t, ok, "no audit field in %s", buf.String())

	var entry Entry
	require.NoError(t, json.Unmarshal(raw, &entry))
	return entry
}

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))
	fixed := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	logger.now = func() time.Time { return fixed }

	logger.Log(Entry{Action: "event.approve", Actor: "admin", ResourceType: "event", ResourceID: "7", Status: StatusSuccess})

	entry := decodeEntry(t, &buf)
	require.Equal(t, "event.approve", entry.Action)
	require.Equal(t, "admin", entry.Actor)
	require.Equal(t, "7", entry.ResourceID)
	require.Equal(t, fixed, entry.Timestamp)
	require.Contains(t, buf.String(), `"component":"audit"`)
}

func TestLogger_RecordSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	ctx := WithRequest(context.Background(), RequestInfo{RequestID: "req-1", ClientIP: "203.0.113.9"})
	logger.Record(ctx, events.Outcome{
		Action:  events.ActionApprove,
		Actor:   events.Actor{Subject: "admin", Admin: true},
		EventID: 12,
		From:    events.StatusPendingApproval,
		To:      events.StatusApproved,
	})

	entry := decodeEntry(t, &buf)
	require.Equal(t, "event.approve", entry.Action)
	require.True(t, entry.Admin)
	require.Equal(t, "12", entry.ResourceID)
	require.Equal(t, StatusSuccess, entry.Status)
	require.Equal(t, "req-1", entry.RequestID)
	require.Equal(t, "203.0.113.9", entry.IPAddress)
	require.Equal(t, map[string]string{"from": "PENDING_APPROVAL", "to": "APPROVED"}, entry.Details)
}

func TestLogger_RecordDenied(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	logger.Record(context.Background(), events.Outcome{
		Action:  events.ActionApprove,
		Actor:   events.Actor{Subject: "collab"},
		EventID: 3,
		From:    events.StatusPendingApproval,
		Err:     events.PermissionError{Action: events.ActionApprove},
	})

	entry := decodeEntry(t, &buf)
	require.Equal(t, StatusDenied, entry.Status)
	require.Equal(t, "you do not have permission to approve this event", entry.Details["error"])
	require.Empty(t, entry.IPAddress)
}

func TestLogger_RecordFailureWithoutEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	logger.Record(context.Background(), events.Outcome{
		Action: events.ActionCreate,
		Actor:  events.Actor{Subject: "collab"},
		Err:    events.ValidationError{Field: "title", Message: "is required"},
	})

	entry := decodeEntry(t, &buf)
	require.Equal(t, StatusFailure, entry.Status)
	require.Empty(t, entry.ResourceID)
}

func TestRequestFromContext_Empty(t *testing.T) {
	require.Equal(t, RequestInfo{}, RequestFromContext(context.Background()))
}
