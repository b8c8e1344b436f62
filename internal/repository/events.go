package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"eventsignup/internal/model"
	"eventsignup/internal/service"
)

const eventColumns = `id, title, slug, date, location, description, price, category,
	registration_start_date, registration_end_date, open_quota_size,
	draft, listed, signups_public, name_question, email_question,
	created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Slug, &e.Date, &e.Location, &e.Description, &e.Price, &e.Category,
		&e.RegistrationStartDate, &e.RegistrationEndDate, &e.OpenQuotaSize,
		&e.Draft, &e.Listed, &e.SignupsPublic, &e.NameQuestion, &e.EmailQuestion,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return &e, nil
}

// LockEvent loads the event row under FOR UPDATE. This lock is the
// serialization point for all recomputations of the event.
func (t *pgTx) LockEvent(ctx context.Context, eventID string) (*model.Event, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	)
	return scanEvent(row)
}

// QuotaWithVisibleEvent resolves a quota together with its event, restricted
// to publicly visible (non-draft) events.
func (t *pgTx) QuotaWithVisibleEvent(ctx context.Context, quotaID string) (*model.Quota, *model.Event, error) {
	var q model.Quota
	var e model.Event
	err := t.tx.QueryRow(ctx,
		`SELECT q.id, q.event_id, q."order", q.title, q.size,
		        e.id, e.title, e.slug, e.date, e.location, e.description, e.price, e.category,
		        e.registration_start_date, e.registration_end_date, e.open_quota_size,
		        e.draft, e.listed, e.signups_public, e.name_question, e.email_question,
		        e.created_at, e.updated_at
		 FROM quotas q
		 JOIN events e ON e.id = q.event_id
		 WHERE q.id = $1 AND NOT e.draft`,
		quotaID,
	).Scan(
		&q.ID, &q.EventID, &q.Order, &q.Title, &q.Size,
		&e.ID, &e.Title, &e.Slug, &e.Date, &e.Location, &e.Description, &e.Price, &e.Category,
		&e.RegistrationStartDate, &e.RegistrationEndDate, &e.OpenQuotaSize,
		&e.Draft, &e.Listed, &e.SignupsPublic, &e.NameQuestion, &e.EmailQuestion,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, service.ErrNotFound
		}
		return nil, nil, fmt.Errorf("find quota: %w", err)
	}
	return &q, &e, nil
}

func (t *pgTx) InsertEvent(ctx context.Context, ev *model.Event) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		ev.ID, ev.Title, ev.Slug, ev.Date, ev.Location, ev.Description, ev.Price, ev.Category,
		ev.RegistrationStartDate, ev.RegistrationEndDate, ev.OpenQuotaSize,
		ev.Draft, ev.Listed, ev.SignupsPublic, ev.NameQuestion, ev.EmailQuestion,
		ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateEvent(ctx context.Context, ev *model.Event) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE events
		 SET title = $2, slug = $3, date = $4, location = $5, description = $6,
		     price = $7, category = $8, registration_start_date = $9,
		     registration_end_date = $10, open_quota_size = $11, draft = $12,
		     listed = $13, signups_public = $14, name_question = $15,
		     email_question = $16, updated_at = $17
		 WHERE id = $1`,
		ev.ID, ev.Title, ev.Slug, ev.Date, ev.Location, ev.Description,
		ev.Price, ev.Category, ev.RegistrationStartDate,
		ev.RegistrationEndDate, ev.OpenQuotaSize, ev.Draft,
		ev.Listed, ev.SignupsPublic, ev.NameQuestion,
		ev.EmailQuestion, ev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

func (t *pgTx) EventQuotas(ctx context.Context, eventID string) ([]model.Quota, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, event_id, "order", title, size
		 FROM quotas
		 WHERE event_id = $1
		 ORDER BY "order" ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list quotas: %w", err)
	}
	defer rows.Close()

	var quotas []model.Quota
	for rows.Next() {
		var q model.Quota
		if err := rows.Scan(&q.ID, &q.EventID, &q.Order, &q.Title, &q.Size); err != nil {
			return nil, fmt.Errorf("scan quota: %w", err)
		}
		quotas = append(quotas, q)
	}
	return quotas, rows.Err()
}

func (t *pgTx) UpsertQuota(ctx context.Context, q *model.Quota) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO quotas (id, event_id, "order", title, size)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET "order" = EXCLUDED."order", title = EXCLUDED.title, size = EXCLUDED.size`,
		q.ID, q.EventID, q.Order, q.Title, q.Size,
	)
	if err != nil {
		return fmt.Errorf("upsert quota: %w", err)
	}
	return nil
}

// DeleteQuotasExcept removes dropped quotas and the signups registered into
// them. The signups go first so no row is left pointing at a missing quota.
func (t *pgTx) DeleteQuotasExcept(ctx context.Context, eventID string, keepIDs []string) error {
	if _, err := t.tx.Exec(ctx,
		`DELETE FROM signups s
		 USING quotas q
		 WHERE s.quota_id = q.id AND q.event_id = $1 AND NOT (q.id = ANY($2))`,
		eventID, keepIDs,
	); err != nil {
		return fmt.Errorf("delete quota signups: %w", err)
	}
	if _, err := t.tx.Exec(ctx,
		`DELETE FROM quotas WHERE event_id = $1 AND NOT (id = ANY($2))`,
		eventID, keepIDs,
	); err != nil {
		return fmt.Errorf("delete quotas: %w", err)
	}
	return nil
}

func (t *pgTx) EventQuestions(ctx context.Context, eventID string) ([]model.Question, error) {
	rows, err := t.tx.Query(ctx,
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

func scanQuestions(rows pgx.Rows) ([]model.Question, error) {
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.EventID, &q.Order, &q.Question, &q.Type, &options, &q.Required, &q.Public); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("decode question options: %w", err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (t *pgTx) ReplaceQuestions(ctx context.Context, eventID string, questions []model.Question) error {
	keep := make([]string, 0, len(questions))
	for _, q := range questions {
		keep = append(keep, q.ID)
	}
	if _, err := t.tx.Exec(ctx,
		`DELETE FROM questions WHERE event_id = $1 AND NOT (id = ANY($2))`,
		eventID, keep,
	); err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode question options: %w", err)
		}
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO questions (id, event_id, "order", question, type, options, required, public)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE
			 SET "order" = EXCLUDED."order", question = EXCLUDED.question,
			     type = EXCLUDED.type, options = EXCLUDED.options,
			     required = EXCLUDED.required, public = EXCLUDED.public`,
			q.ID, q.EventID, q.Order, q.Question, q.Type, options, q.Required, q.Public,
		); err != nil {
			return fmt.Errorf("upsert question: %w", err)
		}
	}
	return nil
}
