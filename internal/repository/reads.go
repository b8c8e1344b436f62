package repository

import (
	"context"
	"fmt"
	"time"

	"eventsignup/internal/model"
)

// Read-only queries for the public and admin projections. These run against
// the pool, outside the transactional engine: they never mutate and a
// slightly stale snapshot is acceptable for listings.

// ListPublicEvents returns all listed, non-draft events with their active
// signup counts, newest event first.
func (p *Postgres) ListPublicEvents(ctx context.Context) ([]model.PublicEventListItem, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT e.id, e.title, e.slug, e.date, e.location, e.category,
		        e.registration_start_date, e.registration_end_date,
		        (SELECT count(*) FROM signups s
		         JOIN quotas q ON q.id = s.quota_id
		         WHERE q.event_id = e.id
		           AND (s.confirmed_at IS NOT NULL OR s.created_at > now() - interval '30 minutes'))
		 FROM events e
		 WHERE NOT e.draft AND e.listed
		 ORDER BY e.date ASC NULLS LAST, e.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var items []model.PublicEventListItem
	for rows.Next() {
		var it model.PublicEventListItem
		if err := rows.Scan(
			&it.ID, &it.Title, &it.Slug, &it.Date, &it.Location, &it.Category,
			&it.RegistrationStartDate, &it.RegistrationEndDate, &it.SignupCount,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// PublicEventDetails returns the public projection of a visible event:
// quotas with fill counts, public questions, and, when the organizer
// enabled it, the public view of each signup.
func (p *Postgres) PublicEventDetails(ctx context.Context, eventID string, cutoff time.Time) (*model.PublicEventDetails, error) {
	ev, err := p.publicEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	details := &model.PublicEventDetails{Event: *ev}

	quotas, err := p.quotasWithSignups(ctx, eventID, cutoff, ev.SignupsPublic)
	if err != nil {
		return nil, err
	}
	details.Quotas = quotas
	for _, q := range quotas {
		for _, s := range q.Signups {
			if s.Status == model.StatusInQueue {
				details.InQueue++
			}
		}
	}

	questions, err := p.publicQuestions(ctx, eventID)
	if err != nil {
		return nil, err
	}
	details.Questions = questions

	return details, nil
}

func (p *Postgres) publicEvent(ctx context.Context, eventID string) (*model.Event, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND NOT draft`,
		eventID,
	)
	return scanEvent(row)
}

func (p *Postgres) quotasWithSignups(ctx context.Context, eventID string, cutoff time.Time, signupsPublic bool) ([]model.PublicQuotaDetails, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT q.id, q.event_id, q."order", q.title, q.size,
		        s.id, s.first_name, s.last_name, s.name_public, s.status, s.position, s.created_at
		 FROM quotas q
		 LEFT JOIN signups s ON s.quota_id = q.id
		      AND (s.confirmed_at IS NOT NULL OR s.created_at > $2)
		 WHERE q.event_id = $1
		 ORDER BY q."order" ASC, s.created_at ASC, s.id ASC`,
		eventID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list quota signups: %w", err)
	}
	defer rows.Close()

	var quotas []model.PublicQuotaDetails
	index := map[string]int{}
	for rows.Next() {
		var q model.Quota
		var signupID *string
		var firstName, lastName *string
		var namePublic *bool
		var status *string
		var position *int
		var createdAt *time.Time
		if err := rows.Scan(
			&q.ID, &q.EventID, &q.Order, &q.Title, &q.Size,
			&signupID, &firstName, &lastName, &namePublic, &status, &position, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan quota signup: %w", err)
		}

		i, ok := index[q.ID]
		if !ok {
			quotas = append(quotas, model.PublicQuotaDetails{Quota: q})
			i = len(quotas) - 1
			index[q.ID] = i
		}
		if signupID == nil {
			continue
		}
		quotas[i].SignupCount++
		if !signupsPublic {
			continue
		}
		signup := model.Signup{
			FirstName:  deref(firstName),
			LastName:   deref(lastName),
			NamePublic: namePublic != nil && *namePublic,
			Status:     statusFrom(status),
			Position:   position,
			CreatedAt:  derefTime(createdAt),
		}
		quotas[i].Signups = append(quotas[i].Signups, model.ProjectPublicSignup(signup))
	}
	return quotas, rows.Err()
}

func (p *Postgres) publicQuestions(ctx context.Context, eventID string) ([]model.Question, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, event_id, "order", question, type, options, required, public
		 FROM questions
		 WHERE event_id = $1
		 ORDER BY "order" ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// AdminEventDetails returns the full event graph, drafts included.
func (p *Postgres) AdminEventDetails(ctx context.Context, eventID string) (*model.AdminEventDetails, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		eventID,
	)
	ev, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	details := &model.AdminEventDetails{Event: *ev}

	quotaRows, err := p.pool.Query(ctx,
		`SELECT id, event_id, "order", title, size FROM quotas WHERE event_id = $1 ORDER BY "order" ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}
	defer quotaRows.Close()
	for quotaRows.Next() {
		var q model.Quota
		if err := quotaRows.Scan(&q.ID, &q.EventID, &q.Order, &q.Title, &q.Size); err != nil {
			return nil, fmt.Errorf("scan quota: %w", err)
		}
		details.Quotas = append(details.Quotas, q)
	}
	if err := quotaRows.Err(); err != nil {
		return nil, err
	}

	details.Questions, err = p.publicQuestions(ctx, eventID)
	if err != nil {
		return nil, err
	}

	signupRows, err := p.pool.Query(ctx,
		`SELECT s.id, s.quota_id, s.first_name, s.last_name, s.name_public, s.email,
		        s.confirmed_at, s.status, s.position, s.created_at
		 FROM signups s
		 JOIN quotas q ON q.id = s.quota_id
		 WHERE q.event_id = $1
		 ORDER BY s.created_at ASC, s.id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	defer signupRows.Close()
	for signupRows.Next() {
		var s model.Signup
		var status *string
		if err := signupRows.Scan(
			&s.ID, &s.QuotaID, &s.FirstName, &s.LastName, &s.NamePublic, &s.Email,
			&s.ConfirmedAt, &status, &s.Position, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		s.Status = statusFrom(status)
		details.Signups = append(details.Signups, s)
	}
	return details, signupRows.Err()
}

// EventsWithExpiredUnconfirmed returns ids of events that have unconfirmed
// signups older than cutoff. Used by the maintenance purge.
func (p *Postgres) EventsWithExpiredUnconfirmed(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT DISTINCT q.event_id
		 FROM signups s
		 JOIN quotas q ON q.id = s.quota_id
		 WHERE s.confirmed_at IS NULL AND s.created_at <= $1`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("find events with expired signups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
