package docfactory

import (
	"errors"
	"fmt"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// ErrUnsupportedEvent reports an event class the factory has no mapping for.
// With the union closed in the events package this indicates a programming
// error, not bad input.
var ErrUnsupportedEvent = errors.New("docfactory: unsupported event class")

// Build dispatches over the event union and produces the search-backend
// document for ev. The originating operation and the payload-specific fields
// land in Metadata.
func Build(ev events.Event) (Document, error) {
	env := ev.Env()
	doc := Document{
		DocID:      ev.EntityID(),
		SourceType: string(ev.Type()),
		UserID:     env.UserID,
		Provider:   env.Provider,
		UpdatedAt:  env.LastUpdated,
		Metadata: map[string]any{
			"operation":      string(env.Operation),
			"sync_timestamp": env.SyncTimestamp,
		},
	}
	if env.BatchID != "" {
		doc.Metadata["batch_id"] = env.BatchID
	}

	switch e := ev.(type) {
	case *events.EmailEvent:
		doc.Title = e.Email.Subject
		doc.Content = e.Email.Body
		doc.Sender = e.Email.FromAddress
		doc.Recipients = e.Email.ToAddresses
		doc.ThreadID = e.Email.ThreadID
		doc.CreatedAt = e.Email.ReceivedDate
		doc.Metadata["cc_addresses"] = e.Email.CcAddresses
		doc.Metadata["labels"] = e.Email.Labels
		doc.Metadata["is_read"] = e.Email.IsRead
		doc.Metadata["is_starred"] = e.Email.IsStarred
		doc.Metadata["has_attachments"] = e.Email.HasAttachments
		doc.Metadata["provider_message_id"] = e.Email.ProviderMessageID

	case *events.CalendarEvent:
		doc.Title = e.Event.Title
		doc.Content = e.Event.Description
		doc.Sender = e.Event.Organizer
		doc.Recipients = e.Event.Attendees
		doc.Folder = e.Event.CalendarID
		doc.CreatedAt = e.Event.StartTime
		doc.Metadata["start_time"] = e.Event.StartTime
		doc.Metadata["end_time"] = e.Event.EndTime
		doc.Metadata["all_day"] = e.Event.AllDay
		doc.Metadata["location"] = e.Event.Location
		doc.Metadata["status"] = e.Event.Status

	case *events.ContactEvent:
		doc.Title = e.Contact.DisplayName
		doc.Content = e.Contact.Notes
		doc.Recipients = e.Contact.EmailAddresses
		doc.Metadata["given_name"] = e.Contact.GivenName
		doc.Metadata["family_name"] = e.Contact.FamilyName
		doc.Metadata["phone_numbers"] = e.Contact.PhoneNumbers
		doc.Metadata["organizations"] = e.Contact.Organizations

	case *events.DocumentEvent:
		doc.Title = e.Document.Title
		doc.Content = e.Document.Content
		doc.Sender = e.Document.OwnerEmail
		doc.Metadata["content_type"] = e.Document.ContentType
		doc.Metadata["word_count"] = e.Document.WordCount
		doc.Metadata["page_count"] = e.Document.PageCount
		doc.Metadata["provider_document_id"] = e.Document.ProviderDocumentID

	case *events.DocumentFragmentEvent:
		doc.Content = e.Fragment.Content
		doc.Folder = e.Fragment.ParentDocID
		doc.ParentDocID = e.Fragment.ParentDocID
		seq := e.Fragment.SequenceNumber
		doc.FragmentSequence = &seq
		doc.Metadata["fragment_type"] = e.Fragment.FragmentType

	case *events.TodoEvent:
		doc.Title = e.Todo.Title
		doc.Content = e.Todo.Description
		doc.Sender = e.Todo.CreatorEmail
		if e.Todo.AssigneeEmail != "" {
			doc.Recipients = []string{e.Todo.AssigneeEmail}
		}
		doc.Folder = e.Todo.ListID
		doc.Metadata["status"] = e.Todo.Status
		doc.Metadata["priority"] = e.Todo.Priority
		doc.Metadata["due_date"] = e.Todo.DueDate
		doc.Metadata["shared_with"] = e.Todo.SharedWith

	case *events.ChatMessageEvent:
		doc.Content = e.Message.Content
		doc.Folder = e.Message.ChatID
		doc.Metadata["role"] = e.Message.Role
		doc.Metadata["model"] = e.Message.Model
		doc.Metadata["token_count"] = e.Message.TokenCount

	case *events.ShipmentEvent:
		doc.Content = e.Shipment.Description
		doc.CreatedAt = e.Shipment.EventTime
		doc.Metadata["tracking_number"] = e.Shipment.TrackingNumber
		doc.Metadata["carrier"] = e.Shipment.Carrier
		doc.Metadata["status"] = e.Shipment.Status
		doc.Metadata["location"] = e.Shipment.Location

	case *events.MeetingPollEvent:
		doc.Content = e.Poll.Question
		doc.Folder = e.Poll.MeetingID
		doc.Metadata["options"] = e.Poll.Options
		doc.Metadata["status"] = e.Poll.Status
		doc.Metadata["closes_at"] = e.Poll.ClosesAt

	case *events.BookingEvent:
		doc.Content = e.Booking.Purpose
		doc.Folder = e.Booking.ResourceID
		doc.Metadata["resource_name"] = e.Booking.ResourceName
		doc.Metadata["start_time"] = e.Booking.StartTime
		doc.Metadata["end_time"] = e.Booking.EndTime
		doc.Metadata["status"] = e.Booking.Status

	default:
		return Document{}, fmt.Errorf("%w: %T", ErrUnsupportedEvent, ev)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = env.LastUpdated
	}
	return doc, nil
}
