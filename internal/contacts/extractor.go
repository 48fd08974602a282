// Package contacts implements the discovery pipeline: it mines person
// mentions out of the event stream, maintains the per-user contact store,
// and keeps relevance scores current.
package contacts

import (
	"strings"
	"time"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// Mention types beyond the plain event classes. Todo mentions record the
// role the address played on the item.
const (
	MentionEmail        = "email"
	MentionCalendar     = "calendar"
	MentionDocument     = "document"
	MentionTodoAssignee = "todo_assignee"
	MentionTodoCreator  = "todo_creator"
	MentionTodoShared   = "todo_shared"
)

// Mention is one observation of a person in an event.
type Mention struct {
	Email         string
	Name          string
	EventType     string
	Timestamp     time.Time
	SourceService string
}

// Extract returns the person mentions carried by ev. Events that carry no
// people, and todo events failing the structural gate, yield nil. Contact
// events are not extracted from; the service merges them directly.
func Extract(ev events.Event) []Mention {
	env := ev.Env()
	ts := env.LastUpdated.Time
	source := env.Metadata.SourceService

	var out []Mention
	add := func(raw, eventType string) {
		email, name, ok := normalizeAddress(raw)
		if !ok {
			return
		}
		out = append(out, Mention{
			Email:         email,
			Name:          name,
			EventType:     eventType,
			Timestamp:     ts,
			SourceService: source,
		})
	}

	switch e := ev.(type) {
	case *events.EmailEvent:
		add(e.Email.FromAddress, MentionEmail)
		for _, a := range e.Email.ToAddresses {
			add(a, MentionEmail)
		}
		for _, a := range e.Email.CcAddresses {
			add(a, MentionEmail)
		}
		for _, a := range e.Email.BccAddresses {
			add(a, MentionEmail)
		}

	case *events.CalendarEvent:
		add(e.Event.Organizer, MentionCalendar)
		for _, a := range e.Event.Attendees {
			add(a, MentionCalendar)
		}

	case *events.DocumentEvent:
		add(e.Document.OwnerEmail, MentionDocument)

	case *events.TodoEvent:
		if !todoGate(e) {
			return nil
		}
		add(e.Todo.AssigneeEmail, MentionTodoAssignee)
		if !strings.EqualFold(e.Todo.CreatorEmail, e.Todo.AssigneeEmail) {
			add(e.Todo.CreatorEmail, MentionTodoCreator)
		}
		for _, a := range e.Todo.SharedWith {
			add(a, MentionTodoShared)
		}
	}
	return out
}

// todoGate is the structural check applied before extracting from a todo
// event.
func todoGate(e *events.TodoEvent) bool {
	return e.Todo.ID != "" && e.UserID != "" && e.Operation.Valid()
}

// normalizeAddress accepts a bare address or an RFC 5322 style
// "Display Name <addr>" mailbox and returns the lowercased address with any
// display name. Addresses without an @ are rejected.
func normalizeAddress(raw string) (email, name string, ok bool) {
	raw = strings.TrimSpace(raw)
	if open := strings.LastIndexByte(raw, '<'); open >= 0 && strings.HasSuffix(raw, ">") {
		name = strings.Trim(strings.TrimSpace(raw[:open]), `"`)
		raw = raw[open+1 : len(raw)-1]
	}
	email = strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(email, "@") || email == "" {
		return "", "", false
	}
	return email, name, true
}

// SplitDisplayName derives given and family names from a free-form display
// name by whitespace split: first token is the given name, the remainder the
// family name.
func SplitDisplayName(display string) (given, family string) {
	fields := strings.Fields(display)
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
