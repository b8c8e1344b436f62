package service

import (
	"context"
	"errors"
	"time"

	"eventsignup/internal/model"
)

// ErrNotFound is returned by store lookups when the target row is missing or
// no longer active. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("not found")

// Store runs transactional work against the signup store. Implementations
// must provide serializable isolation and retry fn on serialization
// conflicts; domain errors returned by fn abort without retry.
type Store interface {
	RunSerializable(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transaction-scoped persistence surface the engine needs. Every
// method runs inside the transaction it was obtained from.
type Tx interface {
	// LockEvent loads the event row under an exclusive row lock. This is the
	// serialization point for all recomputations of one event.
	LockEvent(ctx context.Context, eventID string) (*model.Event, error)
	// QuotaWithVisibleEvent resolves a quota and its owning event, only for
	// publicly visible events.
	QuotaWithVisibleEvent(ctx context.Context, quotaID string) (*model.Quota, *model.Event, error)
	InsertEvent(ctx context.Context, ev *model.Event) error
	UpdateEvent(ctx context.Context, ev *model.Event) error
	EventQuotas(ctx context.Context, eventID string) ([]model.Quota, error)
	UpsertQuota(ctx context.Context, q *model.Quota) error
	// DeleteQuotasExcept removes the event's quotas not listed in keepIDs,
	// together with the signups registered into them.
	DeleteQuotasExcept(ctx context.Context, eventID string, keepIDs []string) error
	EventQuestions(ctx context.Context, eventID string) ([]model.Question, error)
	ReplaceQuestions(ctx context.Context, eventID string, questions []model.Question) error

	InsertSignup(ctx context.Context, s *model.Signup) error
	// ActiveSignup loads one active signup with its quota and event. The read
	// is plain; serializable isolation detects concurrent writes. cutoff is
	// the activity horizon (now minus the grace period); unconfirmed signups
	// created before it are not found.
	ActiveSignup(ctx context.Context, signupID string, cutoff time.Time) (*model.SignupWithQuota, *model.Event, error)
	// ActiveSignupsForUpdate loads and locks all active signups of an event
	// in (createdAt, id) ascending order.
	ActiveSignupsForUpdate(ctx context.Context, eventID string, cutoff time.Time) ([]model.SignupWithQuota, error)
	UpdateSignupPosition(ctx context.Context, signupID string, status model.SignupStatus, position int) error
	UpdateSignupFields(ctx context.Context, s *model.Signup) error
	DeleteSignup(ctx context.Context, signupID string) error
	SignupAnswers(ctx context.Context, signupID string) ([]model.Answer, error)
	ReplaceAnswers(ctx context.Context, signupID string, answers []model.Answer) error
	// DeleteUnconfirmedSignups removes this event's unconfirmed signups
	// created before cutoff, returning how many were removed.
	DeleteUnconfirmedSignups(ctx context.Context, eventID string, cutoff time.Time) (int64, error)

	RecordAudit(ctx context.Context, entry model.AuditEntry) error
}

// Notifier delivers best-effort notifications to registrants. Failures are
// logged by the caller and never affect committed state.
type Notifier interface {
	PromotedFromQueue(ctx context.Context, email string, event model.Event) error
	SignupConfirmation(ctx context.Context, email string, event model.Event, signup model.Signup) error
}

// Clock abstracts wall-clock time so window checks are testable.
type Clock func() time.Time
