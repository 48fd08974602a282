// Package docfactory maps domain events onto the canonical search-backend
// document. The factory is pure: it reads the event, never mutates it, and
// performs no I/O.
package docfactory

import (
	"github.com/corpus-self/ingest-fabric/internal/events"
)

// Document is the canonical record written to the search backend. DocID is
// the primary key; deletes address the same key. Metadata carries the
// payload-specific fields that do not fit the shared columns.
type Document struct {
	DocID      string   `json:"doc_id"`
	SourceType string   `json:"source_type"`
	UserID     string   `json:"user_id"`
	Provider   string   `json:"provider,omitempty"`
	Title      string   `json:"title,omitempty"`
	Content    string   `json:"content,omitempty"`
	Sender     string   `json:"sender,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	ThreadID   string   `json:"thread_id,omitempty"`
	Folder     string   `json:"folder,omitempty"`

	CreatedAt events.Timestamp `json:"created_at,omitzero"`
	UpdatedAt events.Timestamp `json:"updated_at,omitzero"`

	// Fragment linkage, set only for document_fragment sources.
	ParentDocID      string `json:"parent_doc_id,omitempty"`
	FragmentSequence *int   `json:"fragment_sequence,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}
