package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createContact = `-- name: CreateContact :one
INSERT INTO contacts (
    user_id, email, given_name, family_name, display_name, notes,
    source_services, event_counts, total_event_count, relevance_score,
    first_seen, last_seen
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
)
RETURNING id, user_id, email, given_name, family_name, display_name, notes, source_services, event_counts, total_event_count, relevance_score, first_seen, last_seen, created_at, updated_at
`

type CreateContactParams struct {
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
}

func (q *Queries) CreateContact(ctx context.Context, arg CreateContactParams) (Contact, error) {
	row := q.db.QueryRow(ctx, createContact,
		arg.UserID,
		arg.Email,
		arg.GivenName,
		arg.FamilyName,
		arg.DisplayName,
		arg.Notes,
		arg.SourceServices,
		arg.EventCounts,
		arg.TotalEventCount,
		arg.RelevanceScore,
		arg.FirstSeen,
		arg.LastSeen,
	)
	var i Contact
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Email,
		&i.GivenName,
		&i.FamilyName,
		&i.DisplayName,
		&i.Notes,
		&i.SourceServices,
		&i.EventCounts,
		&i.TotalEventCount,
		&i.RelevanceScore,
		&i.FirstSeen,
		&i.LastSeen,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getContactByUserEmail = `-- name: GetContactByUserEmail :one
SELECT id, user_id, email, given_name, family_name, display_name, notes, source_services, event_counts, total_event_count, relevance_score, first_seen, last_seen, created_at, updated_at FROM contacts
WHERE user_id = $1 AND email = $2
`

type GetContactByUserEmailParams struct {
	UserID string
	Email  string
}

func (q *Queries) GetContactByUserEmail(ctx context.Context, arg GetContactByUserEmailParams) (Contact, error) {
	row := q.db.QueryRow(ctx, getContactByUserEmail, arg.UserID, arg.Email)
	var i Contact
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Email,
		&i.GivenName,
		&i.FamilyName,
		&i.DisplayName,
		&i.Notes,
		&i.SourceServices,
		&i.EventCounts,
		&i.TotalEventCount,
		&i.RelevanceScore,
		&i.FirstSeen,
		&i.LastSeen,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateContact = `-- name: UpdateContact :one
UPDATE contacts SET
    given_name = $2,
    family_name = $3,
    display_name = $4,
    notes = $5,
    source_services = $6,
    event_counts = $7,
    total_event_count = $8,
    relevance_score = $9,
    last_seen = $10,
    updated_at = now()
WHERE id = $1
RETURNING id, user_id, email, given_name, family_name, display_name, notes, source_services, event_counts, total_event_count, relevance_score, first_seen, last_seen, created_at, updated_at
`

type UpdateContactParams struct {
	ID              pgtype.UUID
	GivenName       pgtype.Text
	FamilyName      pgtype.Text
	DisplayName     pgtype.Text
	Notes           pgtype.Text
	SourceServices  []string
	EventCounts     []byte
	TotalEventCount int32
	RelevanceScore  float64
	LastSeen        pgtype.Timestamptz
}

func (q *Queries) UpdateContact(ctx context.Context, arg UpdateContactParams) (Contact, error) {
	row := q.db.QueryRow(ctx, updateContact,
		arg.ID,
		arg.GivenName,
		arg.FamilyName,
		arg.DisplayName,
		arg.Notes,
		arg.SourceServices,
		arg.EventCounts,
		arg.TotalEventCount,
		arg.RelevanceScore,
		arg.LastSeen,
	)
	var i Contact
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Email,
		&i.GivenName,
		&i.FamilyName,
		&i.DisplayName,
		&i.Notes,
		&i.SourceServices,
		&i.EventCounts,
		&i.TotalEventCount,
		&i.RelevanceScore,
		&i.FirstSeen,
		&i.LastSeen,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateRelevanceScore = `-- name: UpdateRelevanceScore :exec
UPDATE contacts SET relevance_score = $2, updated_at = now()
WHERE id = $1
`

type UpdateRelevanceScoreParams struct {
	ID             pgtype.UUID
	RelevanceScore float64
}

func (q *Queries) UpdateRelevanceScore(ctx context.Context, arg UpdateRelevanceScoreParams) error {
	_, err := q.db.Exec(ctx, updateRelevanceScore, arg.ID, arg.RelevanceScore)
	return err
}

const listContactsByRelevance = `-- name: ListContactsByRelevance :many
SELECT id, user_id, email, given_name, family_name, display_name, notes, source_services, event_counts, total_event_count, relevance_score, first_seen, last_seen, created_at, updated_at FROM contacts
WHERE user_id = $1
ORDER BY relevance_score DESC, last_seen DESC
LIMIT $2
`

type ListContactsByRelevanceParams struct {
	UserID string
	Limit  int32
}

func (q *Queries) ListContactsByRelevance(ctx context.Context, arg ListContactsByRelevanceParams) ([]Contact, error) {
	rows, err := q.db.Query(ctx, listContactsByRelevance, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Contact
	for rows.Next() {
		var i Contact
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Email,
			&i.GivenName,
			&i.FamilyName,
			&i.DisplayName,
			&i.Notes,
			&i.SourceServices,
			&i.EventCounts,
			&i.TotalEventCount,
			&i.RelevanceScore,
			&i.FirstSeen,
			&i.LastSeen,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const searchContacts = `-- name: SearchContacts :many
SELECT id, user_id, email, given_name, family_name, display_name, notes, source_services, event_counts, total_event_count, relevance_score, first_seen, last_seen, created_at, updated_at FROM contacts
WHERE user_id = $1
  AND (email ILIKE '%' || $2 || '%'
       OR display_name ILIKE '%' || $2 || '%'
       OR given_name ILIKE '%' || $2 || '%'
       OR family_name ILIKE '%' || $2 || '%')
ORDER BY relevance_score DESC
LIMIT $3
`

type SearchContactsParams struct {
	UserID string
	Query  string
	Limit  int32
}

func (q *Queries) SearchContacts(ctx context.Context, arg SearchContactsParams) ([]Contact, error) {
	rows, err := q.db.Query(ctx, searchContacts, arg.UserID, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Contact
	for rows.Next() {
		var i Contact
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Email,
			&i.GivenName,
			&i.FamilyName,
			&i.DisplayName,
			&i.Notes,
			&i.SourceServices,
			&i.EventCounts,
			&i.TotalEventCount,
			&i.RelevanceScore,
			&i.FirstSeen,
			&i.LastSeen,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listContactsPage = `-- name: ListContactsPage :many
SELECT id, user_id, email, given_name, family_name, display_name, notes, source_services, event_counts, total_event_count, relevance_score, first_seen, last_seen, created_at, updated_at FROM contacts
ORDER BY id
LIMIT $1 OFFSET $2
`

type ListContactsPageParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListContactsPage(ctx context.Context, arg ListContactsPageParams) ([]Contact, error) {
	rows, err := q.db.Query(ctx, listContactsPage, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Contact
	for rows.Next() {
		var i Contact
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Email,
			&i.GivenName,
			&i.FamilyName,
			&i.DisplayName,
			&i.Notes,
			&i.SourceServices,
			&i.EventCounts,
			&i.TotalEventCount,
			&i.RelevanceScore,
			&i.FirstSeen,
			&i.LastSeen,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
