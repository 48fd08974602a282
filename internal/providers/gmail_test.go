package providers

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

func rawMessage() GmailMessage {
	body := base64.RawURLEncoding.EncodeToString([]byte("Hi there"))
	return GmailMessage{
		ID:           "m1",
		ThreadID:     "t1",
		LabelIDs:     []string{"INBOX", "STARRED"},
		Snippet:      "Hi th...",
		SizeEstimate: 2048,
		InternalDate: "1704103200000", // 2024-01-01T10:00:00Z
		Payload: GmailMessagePart{
			MimeType: "multipart/alternative",
			Headers: []GmailHeader{
				{Name: "Subject", Value: "Hello"},
				{Name: "From", Value: "Alice <A@x.com>"},
				{Name: "To", Value: "b@y.com, Carol <c@z.com>"},
				{Name: "Date", Value: "Mon, 01 Jan 2024 10:00:00 +0000"},
			},
			Parts: []GmailMessagePart{
				{MimeType: "text/plain", Body: GmailMessageBody{Data: body}},
				{MimeType: "application/pdf", Filename: "doc.pdf"},
			},
		},
	}
}

func TestNormalizeGmailMessage(t *testing.T) {
	p, updated, err := NormalizeGmailMessage(rawMessage())
	require.NoError(t, err)

	assert.Equal(t, "m1", p.ID)
	assert.Equal(t, "t1", p.ThreadID)
	assert.Equal(t, "Hello", p.Subject)
	assert.Equal(t, "Hi there", p.Body)
	assert.Equal(t, "a@x.com", p.FromAddress)
	assert.Equal(t, []string{"b@y.com", "c@z.com"}, p.ToAddresses)
	assert.True(t, p.IsRead)
	assert.True(t, p.IsStarred)
	assert.True(t, p.HasAttachments)
	assert.Equal(t, "m1", p.ProviderMessageID)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), updated)
	assert.Equal(t, updated, p.ReceivedDate.Time)
}

func TestNormalizeGmailUnreadFallsBackToSnippet(t *testing.T) {
	raw := rawMessage()
	raw.LabelIDs = []string{"INBOX", "UNREAD"}
	raw.Payload.Parts = nil

	p, _, err := NormalizeGmailMessage(raw)
	require.NoError(t, err)
	assert.False(t, p.IsRead)
	assert.Equal(t, "Hi th...", p.Body)
	assert.False(t, p.HasAttachments)
}

func TestNormalizeGmailRejectsMissingID(t *testing.T) {
	raw := rawMessage()
	raw.ID = ""
	_, _, err := NormalizeGmailMessage(raw)
	require.Error(t, err)
}

func TestGmailEventValidates(t *testing.T) {
	ev, err := GmailEvent("u1", events.OperationCreate, rawMessage())
	require.NoError(t, err)

	require.NoError(t, events.Validate(ev))
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, ProviderGmail, ev.Provider)
	assert.Equal(t, "m1", ev.EntityID())
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), ev.LastUpdated.Time)
}

func TestCalendarEventCancelledMapsToDelete(t *testing.T) {
	raw := CalendarEventResource{
		ID:      "ev1",
		Summary: "Standup",
		Status:  "cancelled",
		Start:   CalendarTime{DateTime: "2024-01-02T09:00:00Z"},
		End:     CalendarTime{DateTime: "2024-01-02T09:15:00Z"},
		Organizer: CalendarActor{
			Email: "Lead@x.com",
		},
		Attendees: []CalendarActor{{Email: "b@y.com"}, {DisplayName: "no email"}},
		Updated:   "2024-01-01T18:00:00Z",
	}

	ev, err := CalendarEvent("u1", "primary", raw)
	require.NoError(t, err)

	assert.Equal(t, events.OperationDelete, ev.Operation)
	assert.Equal(t, "lead@x.com", ev.Event.Organizer)
	assert.Equal(t, []string{"b@y.com"}, ev.Event.Attendees)
	assert.Equal(t, "primary", ev.Event.CalendarID)
	assert.False(t, ev.Event.AllDay)
}

func TestNormalizeCalendarAllDay(t *testing.T) {
	raw := CalendarEventResource{
		ID:      "ev2",
		Start:   CalendarTime{Date: "2024-03-01"},
		End:     CalendarTime{Date: "2024-03-02"},
		Updated: "2024-02-28T00:00:00Z",
	}
	p, _, err := NormalizeCalendarEvent("primary", raw)
	require.NoError(t, err)
	assert.True(t, p.AllDay)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.StartTime.Time)
}

func TestNormalizeDriveFile(t *testing.T) {
	raw := DriveFile{
		ID:           "d1",
		Name:         "Q3 Plan",
		MimeType:     "application/vnd.google-apps.document",
		ModifiedTime: "2024-01-05T12:00:00Z",
		Owners:       []DriveUser{{EmailAddress: "Owner@x.com"}},
		Permissions: []DrivePermission{
			{EmailAddress: "b@y.com", Role: "reader"},
			{Type: "domain"},
		},
	}

	p, updated, err := NormalizeDriveFile(raw, "alpha beta gamma")
	require.NoError(t, err)
	assert.Equal(t, events.ContentTypeWord, p.ContentType)
	assert.Equal(t, "owner@x.com", p.OwnerEmail)
	assert.Equal(t, []string{"b@y.com"}, p.Permissions)
	assert.Equal(t, 3, p.WordCount)
	assert.Equal(t, time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), updated)
}

func TestNormalizeDriveFileRejectsUnknownMime(t *testing.T) {
	raw := DriveFile{ID: "d2", MimeType: "image/png", ModifiedTime: "2024-01-05T12:00:00Z"}
	_, _, err := NormalizeDriveFile(raw, "")
	require.Error(t, err)
}

func TestDriveEventTrashedMapsToDelete(t *testing.T) {
	raw := DriveFile{
		ID:           "d3",
		MimeType:     "application/vnd.google-apps.spreadsheet",
		ModifiedTime: "2024-01-05T12:00:00Z",
		Trashed:      true,
	}
	ev, err := DriveEvent("u1", raw, "")
	require.NoError(t, err)
	assert.Equal(t, events.OperationDelete, ev.Operation)
	assert.Equal(t, events.ContentTypeSheet, ev.Document.ContentType)
}
