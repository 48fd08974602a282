package db

import (
	"context"
)

type Querier interface {
	CreateContact(ctx context.Context, arg CreateContactParams) (Contact, error)
	GetContactByUserEmail(ctx context.Context, arg GetContactByUserEmailParams) (Contact, error)
	UpdateContact(ctx context.Context, arg UpdateContactParams) (Contact, error)
	UpdateRelevanceScore(ctx context.Context, arg UpdateRelevanceScoreParams) error
	ListContactsByRelevance(ctx context.Context, arg ListContactsByRelevanceParams) ([]Contact, error)
	SearchContacts(ctx context.Context, arg SearchContactsParams) ([]Contact, error)
	ListContactsPage(ctx context.Context, arg ListContactsPageParams) ([]Contact, error)
}

var _ Querier = (*Queries)(nil)
