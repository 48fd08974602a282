package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// Drive workspace MIME types and their fabric content types. Files outside
// this table are not indexable documents and fail normalization.
var driveContentTypes = map[string]string{
	"application/vnd.google-apps.document":     events.ContentTypeWord,
	"application/vnd.google-apps.spreadsheet":  events.ContentTypeSheet,
	"application/vnd.google-apps.presentation": events.ContentTypePresentation,
}

// DriveFile mirrors the Drive API files resource. Content is the exported
// plain-text body fetched by a separate export call; the files resource
// itself carries only metadata.
type DriveFile struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	MimeType     string            `json:"mimeType"`
	ModifiedTime string            `json:"modifiedTime"` // RFC 3339
	Owners       []DriveUser       `json:"owners"`
	Permissions  []DrivePermission `json:"permissions"`
	Trashed      bool              `json:"trashed"`
}

// DriveUser is an owner entry.
type DriveUser struct {
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

// DrivePermission is one sharing grant.
type DrivePermission struct {
	EmailAddress string `json:"emailAddress"`
	Role         string `json:"role"`
	Type         string `json:"type"`
}

// NormalizeDriveFile maps one Drive file plus its exported content onto a
// document payload and its provider-side mutation time.
func NormalizeDriveFile(raw DriveFile, content string) (events.DocumentPayload, time.Time, error) {
	if raw.ID == "" {
		return events.DocumentPayload{}, time.Time{}, fmt.Errorf("providers: drive file has no id")
	}
	contentType, ok := driveContentTypes[raw.MimeType]
	if !ok {
		return events.DocumentPayload{}, time.Time{}, fmt.Errorf("providers: drive file %s: unsupported mime type %q", raw.ID, raw.MimeType)
	}

	updated, err := time.Parse(time.RFC3339, raw.ModifiedTime)
	if err != nil {
		return events.DocumentPayload{}, time.Time{}, fmt.Errorf("providers: drive file %s: bad modifiedTime %q", raw.ID, raw.ModifiedTime)
	}

	p := events.DocumentPayload{
		ID:                 raw.ID,
		Title:              raw.Name,
		Content:            content,
		ContentType:        contentType,
		ProviderDocumentID: raw.ID,
	}
	if len(raw.Owners) > 0 {
		p.OwnerEmail = strings.ToLower(raw.Owners[0].EmailAddress)
	}
	for _, perm := range raw.Permissions {
		if perm.EmailAddress != "" {
			p.Permissions = append(p.Permissions, strings.ToLower(perm.EmailAddress))
		}
	}
	if contentType == events.ContentTypeWord {
		p.WordCount = len(strings.Fields(content))
	}
	return p, updated.UTC(), nil
}

// DriveEvent wraps a normalized Drive file into a publishable event.
// Trashed files map to the delete operation.
func DriveEvent(userID string, raw DriveFile, content string) (*events.DocumentEvent, error) {
	p, updated, err := NormalizeDriveFile(raw, content)
	if err != nil {
		return nil, err
	}
	op := events.OperationUpdate
	if raw.Trashed {
		op = events.OperationDelete
	}
	return &events.DocumentEvent{
		Envelope: envelope("drive_sync", userID, op, ProviderGoogle, updated),
		Document: p,
	}, nil
}
