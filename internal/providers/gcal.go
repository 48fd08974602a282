package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// ProviderGoogle is the provider tag for Calendar and Drive entities.
const ProviderGoogle = "google"

// CalendarEventResource mirrors the Calendar API events resource.
type CalendarEventResource struct {
	ID          string             `json:"id"`
	Summary     string             `json:"summary"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	Status      string             `json:"status"`
	Visibility  string             `json:"visibility"`
	Start       CalendarTime       `json:"start"`
	End         CalendarTime       `json:"end"`
	Organizer   CalendarActor      `json:"organizer"`
	Attendees   []CalendarActor    `json:"attendees"`
	Recurrence  []string           `json:"recurrence"`
	Reminders   CalendarReminders  `json:"reminders"`
	Attachments []CalendarFileLink `json:"attachments"`
	Updated     string             `json:"updated"` // RFC 3339
}

// CalendarTime is either a timed instant or an all-day date.
type CalendarTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

// CalendarActor is an organizer or attendee entry.
type CalendarActor struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// CalendarReminders carries the per-event override list.
type CalendarReminders struct {
	Overrides []CalendarReminder `json:"overrides"`
}

// CalendarReminder is one reminder override.
type CalendarReminder struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// CalendarFileLink is an attachment reference.
type CalendarFileLink struct {
	FileURL string `json:"fileUrl"`
	Title   string `json:"title"`
}

// NormalizeCalendarEvent maps one Calendar API event onto a calendar payload
// and its provider-side mutation time. calendarID names the containing
// calendar; the payload id is the provider's event id.
func NormalizeCalendarEvent(calendarID string, raw CalendarEventResource) (events.CalendarPayload, time.Time, error) {
	if raw.ID == "" {
		return events.CalendarPayload{}, time.Time{}, fmt.Errorf("providers: calendar event has no id")
	}

	updated, err := time.Parse(time.RFC3339, raw.Updated)
	if err != nil {
		return events.CalendarPayload{}, time.Time{}, fmt.Errorf("providers: calendar event %s: bad updated %q", raw.ID, raw.Updated)
	}

	start, allDay, err := parseCalendarTime(raw.Start)
	if err != nil {
		return events.CalendarPayload{}, time.Time{}, fmt.Errorf("providers: calendar event %s: %w", raw.ID, err)
	}
	end, _, err := parseCalendarTime(raw.End)
	if err != nil {
		return events.CalendarPayload{}, time.Time{}, fmt.Errorf("providers: calendar event %s: %w", raw.ID, err)
	}

	p := events.CalendarPayload{
		ID:              raw.ID,
		Title:           raw.Summary,
		Description:     raw.Description,
		StartTime:       events.NewTimestamp(start),
		EndTime:         events.NewTimestamp(end),
		AllDay:          allDay,
		Organizer:       strings.ToLower(raw.Organizer.Email),
		Location:        raw.Location,
		Status:          raw.Status,
		Visibility:      raw.Visibility,
		Recurrence:      raw.Recurrence,
		ProviderEventID: raw.ID,
		CalendarID:      calendarID,
	}
	for _, a := range raw.Attendees {
		if a.Email != "" {
			p.Attendees = append(p.Attendees, strings.ToLower(a.Email))
		}
	}
	for _, r := range raw.Reminders.Overrides {
		p.ReminderMinutes = append(p.ReminderMinutes, r.Minutes)
	}
	for _, att := range raw.Attachments {
		p.Attachments = append(p.Attachments, att.FileURL)
	}
	return p, updated.UTC(), nil
}

// CalendarEvent wraps a normalized calendar entry into a publishable event.
// Cancelled entries map to the delete operation.
func CalendarEvent(userID, calendarID string, raw CalendarEventResource) (*events.CalendarEvent, error) {
	p, updated, err := NormalizeCalendarEvent(calendarID, raw)
	if err != nil {
		return nil, err
	}
	op := events.OperationUpdate
	if raw.Status == "cancelled" {
		op = events.OperationDelete
	}
	return &events.CalendarEvent{
		Envelope: envelope("calendar_sync", userID, op, ProviderGoogle, updated),
		Event:    p,
	}, nil
}

func parseCalendarTime(ct CalendarTime) (time.Time, bool, error) {
	switch {
	case ct.DateTime != "":
		t, err := time.Parse(time.RFC3339, ct.DateTime)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("bad dateTime %q", ct.DateTime)
		}
		return t.UTC(), false, nil
	case ct.Date != "":
		t, err := time.Parse("2006-01-02", ct.Date)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("bad date %q", ct.Date)
		}
		return t.UTC(), true, nil
	}
	return time.Time{}, false, nil
}
