package events

// EmailPayload is the normalized mail message shape shared by all mail
// providers. ProviderMessageID is the provider's native identifier and,
// together with provider and user_id, uniquely identifies an immutable
// message instance.
type EmailPayload struct {
	ID                string            `json:"id"`
	ThreadID          string            `json:"thread_id,omitempty"`
	Subject           string            `json:"subject,omitempty"`
	Body              string            `json:"body,omitempty"`
	FromAddress       string            `json:"from_address,omitempty"`
	ToAddresses       []string          `json:"to_addresses,omitempty"`
	CcAddresses       []string          `json:"cc_addresses,omitempty"`
	BccAddresses      []string          `json:"bcc_addresses,omitempty"`
	ReceivedDate      Timestamp         `json:"received_date,omitzero"`
	SentDate          Timestamp         `json:"sent_date,omitzero"`
	Labels            []string          `json:"labels,omitempty"`
	IsRead            bool              `json:"is_read,omitempty"`
	IsStarred         bool              `json:"is_starred,omitempty"`
	HasAttachments    bool              `json:"has_attachments,omitempty"`
	ProviderMessageID string            `json:"provider_message_id,omitempty"`
	SizeBytes         int64             `json:"size_bytes,omitempty"`
	MimeType          string            `json:"mime_type,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
}

func (e *EmailEvent) validatePayload() error {
	if e.Email.ID == "" {
		return &ValidationError{Field: "email.id", Reason: "required"}
	}
	return nil
}

// CalendarPayload is the normalized calendar entry shape.
type CalendarPayload struct {
	ID              string    `json:"id"`
	Title           string    `json:"title,omitempty"`
	Description     string    `json:"description,omitempty"`
	StartTime       Timestamp `json:"start_time,omitzero"`
	EndTime         Timestamp `json:"end_time,omitzero"`
	AllDay          bool      `json:"all_day,omitempty"`
	Organizer       string    `json:"organizer,omitempty"`
	Attendees       []string  `json:"attendees,omitempty"`
	Location        string    `json:"location,omitempty"`
	Status          string    `json:"status,omitempty"`
	Visibility      string    `json:"visibility,omitempty"`
	Recurrence      []string  `json:"recurrence,omitempty"`
	ReminderMinutes []int     `json:"reminder_minutes,omitempty"`
	Attachments     []string  `json:"attachments,omitempty"`
	ProviderEventID string    `json:"provider_event_id,omitempty"`
	CalendarID      string    `json:"calendar_id,omitempty"`
}

func (e *CalendarEvent) validatePayload() error {
	if e.Event.ID == "" {
		return &ValidationError{Field: "event.id", Reason: "required"}
	}
	return nil
}

// ContactPayload is the normalized contact shape.
type ContactPayload struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"display_name,omitempty"`
	GivenName         string   `json:"given_name,omitempty"`
	FamilyName        string   `json:"family_name,omitempty"`
	EmailAddresses    []string `json:"email_addresses,omitempty"`
	PhoneNumbers      []string `json:"phone_numbers,omitempty"`
	Addresses         []string `json:"addresses,omitempty"`
	Organizations     []string `json:"organizations,omitempty"`
	Birthdays         []string `json:"birthdays,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	PhotoURLs         []string `json:"photo_urls,omitempty"`
	Groups            []string `json:"groups,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	ProviderContactID string   `json:"provider_contact_id,omitempty"`
}

func (e *ContactEvent) validatePayload() error {
	if e.Contact.ID == "" {
		return &ValidationError{Field: "contact.id", Reason: "required"}
	}
	return nil
}

// Document content types.
const (
	ContentTypeWord         = "word"
	ContentTypeSheet        = "sheet"
	ContentTypePresentation = "presentation"
	ContentTypeTask         = "task"
)

// DocumentPayload is the normalized office document shape. The counter
// fields apply per content type: word and page counts for word documents,
// row/column/sheet counts for spreadsheets, slide count for presentations.
type DocumentPayload struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title,omitempty"`
	Content            string   `json:"content,omitempty"`
	ContentType        string   `json:"content_type"`
	OwnerEmail         string   `json:"owner_email,omitempty"`
	Permissions        []string `json:"permissions,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	ProviderDocumentID string   `json:"provider_document_id,omitempty"`
	WordCount          int      `json:"word_count,omitempty"`
	PageCount          int      `json:"page_count,omitempty"`
	RowCount           int      `json:"row_count,omitempty"`
	ColumnCount        int      `json:"column_count,omitempty"`
	SheetCount         int      `json:"sheet_count,omitempty"`
	SlideCount         int      `json:"slide_count,omitempty"`
}

func (e *DocumentEvent) validatePayload() error {
	if e.Document.ID == "" {
		return &ValidationError{Field: "document.id", Reason: "required"}
	}
	switch e.Document.ContentType {
	case ContentTypeWord, ContentTypeSheet, ContentTypePresentation, ContentTypeTask:
		return nil
	}
	return &ValidationError{Field: "document.content_type", Reason: "must be word, sheet, presentation or task"}
}

// DocumentFragmentPayload is one chunk of a parent document. SequenceNumber
// is 0-indexed and contiguous within a parent, and the parent must belong to
// the fragment's user.
type DocumentFragmentPayload struct {
	ID             string `json:"id"`
	ParentDocID    string `json:"parent_doc_id"`
	Content        string `json:"content,omitempty"`
	FragmentType   string `json:"fragment_type,omitempty"`
	SequenceNumber int    `json:"sequence_number"`
}

func (e *DocumentFragmentEvent) validatePayload() error {
	if e.Fragment.ID == "" {
		return &ValidationError{Field: "fragment.id", Reason: "required"}
	}
	if e.Fragment.ParentDocID == "" {
		return &ValidationError{Field: "fragment.parent_doc_id", Reason: "required"}
	}
	if e.Fragment.SequenceNumber < 0 {
		return &ValidationError{Field: "fragment.sequence_number", Reason: "must be non-negative"}
	}
	return nil
}

// TodoPayload is the normalized todo item shape. SharedWith lists the email
// addresses the item is shared with beyond assignee and creator.
type TodoPayload struct {
	ID            string    `json:"id"`
	Title         string    `json:"title,omitempty"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status,omitempty"`
	Priority      string    `json:"priority,omitempty"`
	DueDate       Timestamp `json:"due_date,omitzero"`
	CompletedDate Timestamp `json:"completed_date,omitzero"`
	AssigneeEmail string    `json:"assignee_email,omitempty"`
	CreatorEmail  string    `json:"creator_email,omitempty"`
	ParentTaskID  string    `json:"parent_task_id,omitempty"`
	SubtaskIDs    []string  `json:"subtask_ids,omitempty"`
	ListID        string    `json:"list_id,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	SharedWith    []string  `json:"shared_with,omitempty"`
}

func (e *TodoEvent) validatePayload() error {
	if e.Todo.ID == "" {
		return &ValidationError{Field: "todo.id", Reason: "required"}
	}
	return nil
}

// ChatMessagePayload is one message of an LLM chat session.
type ChatMessagePayload struct {
	ID         string `json:"id"`
	ChatID     string `json:"chat_id,omitempty"`
	Role       string `json:"role,omitempty"`
	Content    string `json:"content,omitempty"`
	Model      string `json:"model,omitempty"`
	TokenCount int    `json:"token_count,omitempty"`
}

func (e *ChatMessageEvent) validatePayload() error {
	if e.Message.ID == "" {
		return &ValidationError{Field: "message.id", Reason: "required"}
	}
	return nil
}

// ShipmentPayload is one tracking update for a shipment.
type ShipmentPayload struct {
	ID             string    `json:"id"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	Carrier        string    `json:"carrier,omitempty"`
	Status         string    `json:"status,omitempty"`
	Description    string    `json:"description,omitempty"`
	EventTime      Timestamp `json:"event_time,omitzero"`
	Location       string    `json:"location,omitempty"`
	OrderID        string    `json:"order_id,omitempty"`
}

func (e *ShipmentEvent) validatePayload() error {
	if e.Shipment.ID == "" {
		return &ValidationError{Field: "shipment_event.id", Reason: "required"}
	}
	return nil
}

// MeetingPollPayload is a meeting scheduling poll.
type MeetingPollPayload struct {
	ID        string            `json:"id"`
	MeetingID string            `json:"meeting_id,omitempty"`
	Question  string            `json:"question,omitempty"`
	Options   []string          `json:"options,omitempty"`
	Responses map[string]string `json:"responses,omitempty"`
	Status    string            `json:"status,omitempty"`
	ClosesAt  Timestamp         `json:"closes_at,omitzero"`
}

func (e *MeetingPollEvent) validatePayload() error {
	if e.Poll.ID == "" {
		return &ValidationError{Field: "poll.id", Reason: "required"}
	}
	return nil
}

// BookingPayload is a resource booking.
type BookingPayload struct {
	ID           string    `json:"id"`
	ResourceID   string    `json:"resource_id,omitempty"`
	ResourceName string    `json:"resource_name,omitempty"`
	Purpose      string    `json:"purpose,omitempty"`
	StartTime    Timestamp `json:"start_time,omitzero"`
	EndTime      Timestamp `json:"end_time,omitzero"`
	Status       string    `json:"status,omitempty"`
	Attendees    []string  `json:"attendees,omitempty"`
}

func (e *BookingEvent) validatePayload() error {
	if e.Booking.ID == "" {
		return &ValidationError{Field: "booking.id", Reason: "required"}
	}
	return nil
}
