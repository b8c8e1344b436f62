package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"eventsignup/internal/model"
	"eventsignup/internal/service"
)

// activeSignup matches signups that still count toward positions: confirmed,
// or unconfirmed but created after the cutoff (now minus the grace period).
const activeSignup = `(s.confirmed_at IS NOT NULL OR s.created_at > %s)`

func (t *pgTx) InsertSignup(ctx context.Context, s *model.Signup) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO signups (id, quota_id, first_name, last_name, name_public, email, created_at)
		 VALUES ($1, $2, '', '', false, '', $3)`,
		s.ID, s.QuotaID, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signup: %w", err)
	}
	return nil
}

// ActiveSignup loads one active signup with its quota and owning event.
// Reads are plain; serializable isolation detects write conflicts.
func (t *pgTx) ActiveSignup(ctx context.Context, signupID string, cutoff time.Time) (*model.SignupWithQuota, *model.Event, error) {
	var sw model.SignupWithQuota
	var e model.Event
	var status *string
	err := t.tx.QueryRow(ctx,
		`SELECT s.id, s.quota_id, s.first_name, s.last_name, s.name_public, s.email,
		        s.confirmed_at, s.status, s.position, s.created_at,
		        q.id, q.event_id, q."order", q.title, q.size,
		        e.id, e.title, e.slug, e.date, e.location, e.description, e.price, e.category,
		        e.registration_start_date, e.registration_end_date, e.open_quota_size,
		        e.draft, e.listed, e.signups_public, e.name_question, e.email_question,
		        e.created_at, e.updated_at
		 FROM signups s
		 JOIN quotas q ON q.id = s.quota_id
		 JOIN events e ON e.id = q.event_id
		 WHERE s.id = $1 AND `+fmt.Sprintf(activeSignup, "$2"),
		signupID, cutoff,
	).Scan(
		&sw.Signup.ID, &sw.Signup.QuotaID, &sw.Signup.FirstName, &sw.Signup.LastName,
		&sw.Signup.NamePublic, &sw.Signup.Email, &sw.Signup.ConfirmedAt, &status,
		&sw.Signup.Position, &sw.Signup.CreatedAt,
		&sw.Quota.ID, &sw.Quota.EventID, &sw.Quota.Order, &sw.Quota.Title, &sw.Quota.Size,
		&e.ID, &e.Title, &e.Slug, &e.Date, &e.Location, &e.Description, &e.Price, &e.Category,
		&e.RegistrationStartDate, &e.RegistrationEndDate, &e.OpenQuotaSize,
		&e.Draft, &e.Listed, &e.SignupsPublic, &e.NameQuestion, &e.EmailQuestion,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, service.ErrNotFound
		}
		return nil, nil, fmt.Errorf("find signup: %w", err)
	}
	sw.Signup.Status = statusFrom(status)
	return &sw, &e, nil
}

// ActiveSignupsForUpdate loads and locks every active signup of the event in
// (created_at, id) ascending order, the strict arrival order the allocator
// requires. The id tie-break keeps the order total when timestamps collide.
func (t *pgTx) ActiveSignupsForUpdate(ctx context.Context, eventID string, cutoff time.Time) ([]model.SignupWithQuota, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT s.id, s.quota_id, s.first_name, s.last_name, s.name_public, s.email,
		        s.confirmed_at, s.status, s.position, s.created_at,
		        q.id, q.event_id, q."order", q.title, q.size
		 FROM signups s
		 JOIN quotas q ON q.id = s.quota_id
		 WHERE q.event_id = $1 AND `+fmt.Sprintf(activeSignup, "$2")+`
		 ORDER BY s.created_at ASC, s.id ASC
		 FOR UPDATE OF s`,
		eventID, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("lock signups: %w", err)
	}
	defer rows.Close()

	var signups []model.SignupWithQuota
	for rows.Next() {
		var sw model.SignupWithQuota
		var status *string
		if err := rows.Scan(
			&sw.Signup.ID, &sw.Signup.QuotaID, &sw.Signup.FirstName, &sw.Signup.LastName,
			&sw.Signup.NamePublic, &sw.Signup.Email, &sw.Signup.ConfirmedAt, &status,
			&sw.Signup.Position, &sw.Signup.CreatedAt,
			&sw.Quota.ID, &sw.Quota.EventID, &sw.Quota.Order, &sw.Quota.Title, &sw.Quota.Size,
		); err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		sw.Signup.Status = statusFrom(status)
		signups = append(signups, sw)
	}
	return signups, rows.Err()
}

func (t *pgTx) UpdateSignupPosition(ctx context.Context, signupID string, status model.SignupStatus, position int) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE signups SET status = $2, position = $3 WHERE id = $1`,
		signupID, string(status), position,
	)
	if err != nil {
		return fmt.Errorf("update signup position: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateSignupFields(ctx context.Context, s *model.Signup) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE signups
		 SET first_name = $2, last_name = $3, email = $4, name_public = $5, confirmed_at = $6
		 WHERE id = $1`,
		s.ID, s.FirstName, s.LastName, s.Email, s.NamePublic, s.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("update signup: %w", err)
	}
	return nil
}

func (t *pgTx) DeleteSignup(ctx context.Context, signupID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM signups WHERE id = $1`, signupID)
	if err != nil {
		return fmt.Errorf("delete signup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

func (t *pgTx) SignupAnswers(ctx context.Context, signupID string) ([]model.Answer, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT question_id, signup_id, answer FROM answers WHERE signup_id = $1`,
		signupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		var raw []byte
		if err := rows.Scan(&a.QuestionID, &a.SignupID, &raw); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &a.Answer); err != nil {
				return nil, fmt.Errorf("decode answer: %w", err)
			}
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (t *pgTx) ReplaceAnswers(ctx context.Context, signupID string, answers []model.Answer) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM answers WHERE signup_id = $1`, signupID); err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	for _, a := range answers {
		raw, err := json.Marshal(a.Answer)
		if err != nil {
			return fmt.Errorf("encode answer: %w", err)
		}
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO answers (question_id, signup_id, answer) VALUES ($1, $2, $3)`,
			a.QuestionID, a.SignupID, raw,
		); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}
	return nil
}

// DeleteUnconfirmedSignups removes the event's unconfirmed signups created
// before cutoff (the maintenance purge).
func (t *pgTx) DeleteUnconfirmedSignups(ctx context.Context, eventID string, cutoff time.Time) (int64, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM signups s
		 USING quotas q
		 WHERE s.quota_id = q.id AND q.event_id = $1
		   AND s.confirmed_at IS NULL AND s.created_at <= $2`,
		eventID, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete unconfirmed signups: %w", err)
	}
	return tag.RowsAffected(), nil
}

func statusFrom(s *string) model.SignupStatus {
	if s == nil {
		return model.StatusUnset
	}
	return model.SignupStatus(*s)
}
