package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Contact is one discovered person scoped to a user. EventCounts is a jsonb
// map of event type to occurrence count; TotalEventCount is its maintained
// sum so ranked listing does not need to unpack the json.
type Contact struct {
	ID              pgtype.UUID
	UserID          string
	Email           string
	GivenName       pgtype.Text
	FamilyName      pgtype.Text
	DisplayName     pgtype.Text
	Notes           pgtype.Text
	SourceServices  []string
	EventCounts     []byte
	TotalEventCount int32
	RelevanceScore  float64
	FirstSeen       pgtype.Timestamptz
	LastSeen        pgtype.Timestamptz
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}
