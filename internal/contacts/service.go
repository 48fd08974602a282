package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/corpus-self/ingest-fabric/internal/contacts/db"
	"github.com/corpus-self/ingest-fabric/internal/events"
)

const (
	sourceService = "contact_discovery"
	sourceVersion = "1.0.0"

	rescorePageSize = 500
)

// Publisher re-emits contact updates onto the contacts topic so the search
// backend is refreshed.
type Publisher interface {
	PublishContact(ctx context.Context, ev *events.ContactEvent) error
}

// Service maintains the contact store. Mention upserts run inside one
// transaction per incoming event; contact update events are published only
// after the transaction commits.
type Service struct {
	pool      *pgxpool.Pool
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService builds a Service over pool.
func NewService(pool *pgxpool.Pool, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		pool:      pool,
		publisher: publisher,
		logger:    logger.Named("contacts"),
		now:       time.Now,
	}
}

// HandleEvent applies one event to the contact store.
func (s *Service) HandleEvent(ctx context.Context, ev events.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("contacts: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	emits, err := s.apply(ctx, db.New(tx), ev)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("contacts: commit: %w", err)
	}

	// The store change is durable at this point. A failed publish only
	// delays the search-backend refresh until the next mention.
	for _, ce := range emits {
		if err := s.publisher.PublishContact(ctx, ce); err != nil {
			s.logger.Error("publish contact update",
				zap.String("user_id", ce.UserID),
				zap.String("contact_id", ce.Contact.ID),
				zap.Error(err))
		}
	}
	return nil
}

// apply runs the discovery logic against q. It returns the contact update
// events to publish once the caller has committed.
func (s *Service) apply(ctx context.Context, q db.Querier, ev events.Event) ([]*events.ContactEvent, error) {
	if ce, ok := ev.(*events.ContactEvent); ok {
		return nil, s.mergeContactEvent(ctx, q, ce)
	}

	mentions := Extract(ev)
	if len(mentions) == 0 {
		return nil, nil
	}

	env := ev.Env()
	var emits []*events.ContactEvent
	for _, m := range mentions {
		contact, err := s.upsertMention(ctx, q, env.UserID, m)
		if err != nil {
			return nil, err
		}
		emits = append(emits, s.contactUpdateEvent(contact, env.Provider))
	}
	return emits, nil
}

// upsertMention creates or merges the contact for one mention.
func (s *Service) upsertMention(ctx context.Context, q db.Querier, userID string, m Mention) (db.Contact, error) {
	existing, err := q.GetContactByUserEmail(ctx, db.GetContactByUserEmailParams{
		UserID: userID,
		Email:  m.Email,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return s.createContact(ctx, q, userID, m)
	}
	if err != nil {
		return db.Contact{}, fmt.Errorf("contacts: lookup %s: %w", m.Email, err)
	}
	return s.mergeMention(ctx, q, existing, m)
}

func (s *Service) createContact(ctx context.Context, q db.Querier, userID string, m Mention) (db.Contact, error) {
	given, family := SplitDisplayName(m.Name)
	counts, err := json.Marshal(map[string]int{m.EventType: 1})
	if err != nil {
		return db.Contact{}, fmt.Errorf("contacts: marshal counts: %w", err)
	}

	var services []string
	if m.SourceService != "" {
		services = []string{m.SourceService}
	}

	contact, err := q.CreateContact(ctx, db.CreateContactParams{
		UserID:          userID,
		Email:           m.Email,
		GivenName:       pgText(given),
		FamilyName:      pgText(family),
		DisplayName:     pgText(m.Name),
		SourceServices:  services,
		EventCounts:     counts,
		TotalEventCount: 1,
		RelevanceScore: Score(Snapshot{
			LastSeen:        m.Timestamp,
			TotalEventCount: 1,
			EventTypeCount:  1,
			HasGivenName:    given != "",
			HasFamilyName:   family != "",
		}, s.now()),
		FirstSeen: pgTime(m.Timestamp),
		LastSeen:  pgTime(m.Timestamp),
	})
	if err != nil {
		return db.Contact{}, fmt.Errorf("contacts: create %s: %w", m.Email, err)
	}
	s.logger.Debug("contact discovered",
		zap.String("user_id", userID),
		zap.String("email", m.Email),
		zap.String("mention", m.EventType))
	return contact, nil
}

func (s *Service) mergeMention(ctx context.Context, q db.Querier, c db.Contact, m Mention) (db.Contact, error) {
	given, family := SplitDisplayName(m.Name)
	if !c.GivenName.Valid && given != "" {
		c.GivenName = pgText(given)
	}
	if !c.FamilyName.Valid && family != "" {
		c.FamilyName = pgText(family)
	}
	if !c.DisplayName.Valid && m.Name != "" {
		c.DisplayName = pgText(m.Name)
	}
	if m.SourceService != "" && !slices.Contains(c.SourceServices, m.SourceService) {
		c.SourceServices = append(c.SourceServices, m.SourceService)
	}

	counts := decodeCounts(c.EventCounts)
	counts[m.EventType]++
	encoded, err := json.Marshal(counts)
	if err != nil {
		return db.Contact{}, fmt.Errorf("contacts: marshal counts: %w", err)
	}
	c.EventCounts = encoded
	c.TotalEventCount++

	if !c.LastSeen.Valid || m.Timestamp.After(c.LastSeen.Time) {
		c.LastSeen = pgTime(m.Timestamp)
	}

	score := Score(Snapshot{
		LastSeen:        c.LastSeen.Time,
		TotalEventCount: int(c.TotalEventCount),
		EventTypeCount:  len(counts),
		HasGivenName:    c.GivenName.Valid,
		HasFamilyName:   c.FamilyName.Valid,
	}, s.now())

	updated, err := q.UpdateContact(ctx, db.UpdateContactParams{
		ID:              c.ID,
		GivenName:       c.GivenName,
		FamilyName:      c.FamilyName,
		DisplayName:     c.DisplayName,
		Notes:           c.Notes,
		SourceServices:  c.SourceServices,
		EventCounts:     c.EventCounts,
		TotalEventCount: c.TotalEventCount,
		RelevanceScore:  score,
		LastSeen:        c.LastSeen,
	})
	if err != nil {
		return db.Contact{}, fmt.Errorf("contacts: update %s: %w", c.Email, err)
	}
	return updated, nil
}

// mergeContactEvent folds a provider contact sync into existing discovered
// entries. Only missing name and note fields are filled; counters are left
// alone and nothing is re-emitted, which keeps the contacts topic free of
// feedback loops.
func (s *Service) mergeContactEvent(ctx context.Context, q db.Querier, ce *events.ContactEvent) error {
	for _, raw := range ce.Contact.EmailAddresses {
		email, _, ok := normalizeAddress(raw)
		if !ok {
			continue
		}
		c, err := q.GetContactByUserEmail(ctx, db.GetContactByUserEmailParams{
			UserID: ce.UserID,
			Email:  email,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("contacts: lookup %s: %w", email, err)
		}

		changed := false
		if !c.GivenName.Valid && ce.Contact.GivenName != "" {
			c.GivenName = pgText(ce.Contact.GivenName)
			changed = true
		}
		if !c.FamilyName.Valid && ce.Contact.FamilyName != "" {
			c.FamilyName = pgText(ce.Contact.FamilyName)
			changed = true
		}
		if !c.DisplayName.Valid && ce.Contact.DisplayName != "" {
			c.DisplayName = pgText(ce.Contact.DisplayName)
			changed = true
		}
		if !c.Notes.Valid && ce.Contact.Notes != "" {
			c.Notes = pgText(ce.Contact.Notes)
			changed = true
		}
		if !changed {
			continue
		}

		if _, err := q.UpdateContact(ctx, db.UpdateContactParams{
			ID:              c.ID,
			GivenName:       c.GivenName,
			FamilyName:      c.FamilyName,
			DisplayName:     c.DisplayName,
			Notes:           c.Notes,
			SourceServices:  c.SourceServices,
			EventCounts:     c.EventCounts,
			TotalEventCount: c.TotalEventCount,
			RelevanceScore:  c.RelevanceScore,
			LastSeen:        c.LastSeen,
		}); err != nil {
			return fmt.Errorf("contacts: merge %s: %w", email, err)
		}
	}
	return nil
}

// RescoreAll recomputes relevance for every contact, paging through the
// store. It is invoked from the daily scheduler so scores decay even for
// contacts with no fresh mentions.
func (s *Service) RescoreAll(ctx context.Context) (int, error) {
	q := db.New(s.pool)
	now := s.now()
	updated := 0
	for offset := int32(0); ; offset += rescorePageSize {
		page, err := q.ListContactsPage(ctx, db.ListContactsPageParams{
			Limit:  rescorePageSize,
			Offset: offset,
		})
		if err != nil {
			return updated, fmt.Errorf("contacts: rescore page: %w", err)
		}
		for _, c := range page {
			score := Score(Snapshot{
				LastSeen:        c.LastSeen.Time,
				TotalEventCount: int(c.TotalEventCount),
				EventTypeCount:  len(decodeCounts(c.EventCounts)),
				HasGivenName:    c.GivenName.Valid,
				HasFamilyName:   c.FamilyName.Valid,
			}, now)
			if math.Abs(score-c.RelevanceScore) < 0.001 {
				continue
			}
			if err := q.UpdateRelevanceScore(ctx, db.UpdateRelevanceScoreParams{
				ID:             c.ID,
				RelevanceScore: score,
			}); err != nil {
				return updated, fmt.Errorf("contacts: rescore %s: %w", c.Email, err)
			}
			updated++
		}
		if len(page) < rescorePageSize {
			return updated, nil
		}
	}
}

// TopContacts lists a user's contacts ranked by relevance.
func (s *Service) TopContacts(ctx context.Context, userID string, limit int32) ([]db.Contact, error) {
	return db.New(s.pool).ListContactsByRelevance(ctx, db.ListContactsByRelevanceParams{
		UserID: userID,
		Limit:  limit,
	})
}

// Search finds a user's contacts by substring over email and name fields.
func (s *Service) Search(ctx context.Context, userID, query string, limit int32) ([]db.Contact, error) {
	return db.New(s.pool).SearchContacts(ctx, db.SearchContactsParams{
		UserID: userID,
		Query:  query,
		Limit:  limit,
	})
}

func (s *Service) contactUpdateEvent(c db.Contact, provider string) *events.ContactEvent {
	now := events.NewTimestamp(s.now())
	return &events.ContactEvent{
		Envelope: events.Envelope{
			Metadata:      events.NewMetadata(sourceService, sourceVersion),
			UserID:        c.UserID,
			Operation:     events.OperationUpdate,
			Provider:      provider,
			LastUpdated:   now,
			SyncTimestamp: now,
		},
		Contact: events.ContactPayload{
			ID:             uuid.UUID(c.ID.Bytes).String(),
			DisplayName:    c.DisplayName.String,
			GivenName:      c.GivenName.String,
			FamilyName:     c.FamilyName.String,
			EmailAddresses: []string{c.Email},
			Notes:          c.Notes.String,
		},
	}
}

func decodeCounts(raw []byte) map[string]int {
	counts := make(map[string]int)
	if len(raw) > 0 {
		// Corrupt json resets the counters rather than failing the event.
		_ = json.Unmarshal(raw, &counts)
	}
	return counts
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func pgTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
