// Package providers normalizes raw provider API resources into the fabric's
// event payloads. Token acquisition and request transport live outside the
// fabric; these normalizers only define the mapping from a provider's wire
// shape to exactly one payload per entity, keyed by the provider's native
// identifier.
package providers

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// ProviderGmail is the provider tag stamped on normalized Gmail entities.
const ProviderGmail = "gmail"

// GmailMessage mirrors the users.messages.get resource.
type GmailMessage struct {
	ID           string           `json:"id"`
	ThreadID     string           `json:"threadId"`
	LabelIDs     []string         `json:"labelIds"`
	Snippet      string           `json:"snippet"`
	SizeEstimate int64            `json:"sizeEstimate"`
	InternalDate string           `json:"internalDate"` // epoch millis as string
	Payload      GmailMessagePart `json:"payload"`
}

// GmailMessagePart is one node of the MIME tree.
type GmailMessagePart struct {
	MimeType string             `json:"mimeType"`
	Headers  []GmailHeader      `json:"headers"`
	Body     GmailMessageBody   `json:"body"`
	Parts    []GmailMessagePart `json:"parts"`
	Filename string             `json:"filename"`
}

// GmailHeader is a single RFC 822 header.
type GmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// GmailMessageBody carries base64url-encoded part content.
type GmailMessageBody struct {
	Data string `json:"data"`
	Size int64  `json:"size"`
}

// NormalizeGmailMessage maps one Gmail message onto an email payload and its
// provider-side mutation time. Gmail messages are immutable, so the internal
// date doubles as last_updated.
func NormalizeGmailMessage(raw GmailMessage) (events.EmailPayload, time.Time, error) {
	if raw.ID == "" {
		return events.EmailPayload{}, time.Time{}, fmt.Errorf("providers: gmail message has no id")
	}

	updated, err := parseEpochMillis(raw.InternalDate)
	if err != nil {
		return events.EmailPayload{}, time.Time{}, fmt.Errorf("providers: gmail message %s: %w", raw.ID, err)
	}

	headers := headerMap(raw.Payload.Headers)
	p := events.EmailPayload{
		ID:                raw.ID,
		ThreadID:          raw.ThreadID,
		Subject:           headers["subject"],
		Body:              extractBody(raw.Payload),
		FromAddress:       firstAddress(headers["from"]),
		ToAddresses:       addressList(headers["to"]),
		CcAddresses:       addressList(headers["cc"]),
		BccAddresses:      addressList(headers["bcc"]),
		ReceivedDate:      events.NewTimestamp(updated),
		Labels:            raw.LabelIDs,
		IsRead:            !hasLabel(raw.LabelIDs, "UNREAD"),
		IsStarred:         hasLabel(raw.LabelIDs, "STARRED"),
		HasAttachments:    hasAttachment(raw.Payload),
		ProviderMessageID: raw.ID,
		SizeBytes:         raw.SizeEstimate,
		MimeType:          raw.Payload.MimeType,
	}
	if sent, err := mail.ParseDate(headers["date"]); err == nil {
		p.SentDate = events.NewTimestamp(sent)
	}
	if p.Body == "" {
		p.Body = raw.Snippet
	}
	return p, updated, nil
}

// GmailEvent wraps a normalized message into a publishable event.
func GmailEvent(userID string, op events.Operation, raw GmailMessage) (*events.EmailEvent, error) {
	p, updated, err := NormalizeGmailMessage(raw)
	if err != nil {
		return nil, err
	}
	return &events.EmailEvent{
		Envelope: envelope("email_sync", userID, op, ProviderGmail, updated),
		Email:    p,
	}, nil
}

func envelope(source, userID string, op events.Operation, provider string, updated time.Time) events.Envelope {
	return events.Envelope{
		Metadata:      events.NewMetadata(source, "1.0.0"),
		UserID:        userID,
		Operation:     op,
		Provider:      provider,
		LastUpdated:   events.NewTimestamp(updated),
		SyncTimestamp: events.Now(),
	}
}

func parseEpochMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad internalDate %q", s)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func headerMap(hs []GmailHeader) map[string]string {
	m := make(map[string]string, len(hs))
	for _, h := range hs {
		m[strings.ToLower(h.Name)] = h.Value
	}
	return m
}

func firstAddress(raw string) string {
	addrs := addressList(raw)
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

func addressList(raw string) []string {
	if raw == "" {
		return nil
	}
	parsed, err := mail.ParseAddressList(raw)
	if err != nil {
		// Providers occasionally emit bare or malformed mailboxes; fall back
		// to comma splitting rather than dropping the recipients.
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, strings.ToLower(trimmed))
			}
		}
		return out
	}
	out := make([]string, 0, len(parsed))
	for _, a := range parsed {
		out = append(out, strings.ToLower(a.Address))
	}
	return out
}

// extractBody walks the MIME tree depth-first and returns the first
// decodable text/plain part, falling back to text/html.
func extractBody(part GmailMessagePart) string {
	if plain := findPart(part, "text/plain"); plain != "" {
		return plain
	}
	return findPart(part, "text/html")
}

func findPart(part GmailMessagePart, mimeType string) string {
	if part.MimeType == mimeType && part.Body.Data != "" {
		decoded, err := base64.RawURLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			return string(decoded)
		}
	}
	for _, child := range part.Parts {
		if body := findPart(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func hasAttachment(part GmailMessagePart) bool {
	if part.Filename != "" {
		return true
	}
	for _, child := range part.Parts {
		if hasAttachment(child) {
			return true
		}
	}
	return false
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
