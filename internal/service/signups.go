package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"eventsignup/internal/model"
)

// CreateSignup registers a new, unconfirmed signup into the given quota and
// recomputes the event's positions in the same transaction. The returned
// edit token is the caller's only credential for later edits.
func (s *Service) CreateSignup(ctx context.Context, quotaID string) (*model.CreateSignupResponse, error) {
	signupID := uuid.NewString()
	hooks := &HookQueue{}
	var eventID string

	err := s.store.RunSerializable(ctx, func(tx Tx) error {
		hooks.Reset()
		quota, ev, err := tx.QuotaWithVisibleEvent(ctx, quotaID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNoSuchQuota
			}
			return fmt.Errorf("find quota: %w", err)
		}
		// Window check happens in the same transaction as the insert, so the
		// signup cannot slip in after the window closes.
		if !ev.SignupsOpen(s.now()) {
			return ErrSignupsClosed
		}

		// Serialize against concurrent recomputations for this event.
		ev, err = tx.LockEvent(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		eventID = ev.ID

		signup := &model.Signup{
			ID:        signupID,
			QuotaID:   quota.ID,
			CreatedAt: s.now(),
		}
		if err := tx.InsertSignup(ctx, signup); err != nil {
			return fmt.Errorf("insert signup: %w", err)
		}

		// A brand-new signup lands at the tail of the arrival order, so it
		// can never demote anyone already placed.
		assignments, err := s.recompute(ctx, tx, ev, true, hooks)
		if err != nil {
			return err
		}
		if pos := findPosition(assignments, signupID); pos != nil {
			logSignup(signupID, ev.ID).WithFields(logrus.Fields{
				"status":   pos.Status,
				"position": pos.Position,
			}).Info("signup created")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hooks.Run()
	s.invalidateEvent(ctx, eventID)

	return &model.CreateSignupResponse{
		ID:        signupID,
		EditToken: s.tokens.Generate(signupID),
	}, nil
}

// GetSignupForEdit returns the signup owner's view: their row, answers, and
// the event's questions.
func (s *Service) GetSignupForEdit(ctx context.Context, signupID, editToken string) (*model.SignupForEdit, error) {
	if !s.tokens.Verify(signupID, editToken) {
		return nil, ErrBadCredential
	}

	var out *model.SignupForEdit
	err := s.store.RunSerializable(ctx, func(tx Tx) error {
		sw, ev, err := tx.ActiveSignup(ctx, signupID, s.activityCutoff())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNoSuchSignup
			}
			return err
		}
		questions, err := tx.EventQuestions(ctx, ev.ID)
		if err != nil {
			return err
		}
		answers, err := tx.SignupAnswers(ctx, signupID)
		if err != nil {
			return err
		}
		out = &model.SignupForEdit{
			Signup:    sw.Signup,
			Answers:   answers,
			Questions: questions,
			Event:     *ev,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSignup edits a signup and confirms it on the first successful edit.
// Confirmation never changes arrival order, so no recomputation happens
// here; only the confirmation email is sent, after commit.
func (s *Service) UpdateSignup(ctx context.Context, signupID, editToken string, req model.UpdateSignupRequest) (*model.Signup, error) {
	if !s.tokens.Verify(signupID, editToken) {
		return nil, ErrBadCredential
	}

	hooks := &HookQueue{}
	var updated *model.Signup
	var eventID string

	err := s.store.RunSerializable(ctx, func(tx Tx) error {
		hooks.Reset()
		sw, ev, err := tx.ActiveSignup(ctx, signupID, s.activityCutoff())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNoSuchSignup
			}
			return err
		}
		if !ev.SignupsOpen(s.now()) {
			return ErrSignupsClosed
		}
		eventID = ev.ID

		questions, err := tx.EventQuestions(ctx, ev.ID)
		if err != nil {
			return err
		}

		signup := sw.Signup
		firstConfirmation := signup.ConfirmedAt == nil

		// Name and email lock in on first confirmation; later edits can only
		// change answers and the name-visibility flag.
		if firstConfirmation {
			if ev.NameQuestion {
				if req.FirstName == "" {
					return &InvalidAnswerError{Question: "firstName", Reason: "missing first name"}
				}
				if req.LastName == "" {
					return &InvalidAnswerError{Question: "lastName", Reason: "missing last name"}
				}
				signup.FirstName = req.FirstName
				signup.LastName = req.LastName
			}
			if ev.EmailQuestion {
				if req.Email == "" {
					return &InvalidAnswerError{Question: "email", Reason: "missing email"}
				}
				signup.Email = req.Email
			}
		}

		answers, err := validateAnswers(signupID, questions, req.Answers)
		if err != nil {
			return err
		}

		signup.NamePublic = req.NamePublic
		if firstConfirmation {
			confirmedAt := s.now()
			signup.ConfirmedAt = &confirmedAt
		}

		if err := tx.UpdateSignupFields(ctx, &signup); err != nil {
			return fmt.Errorf("update signup: %w", err)
		}
		if err := tx.ReplaceAnswers(ctx, signupID, answers); err != nil {
			return fmt.Errorf("replace answers: %w", err)
		}
		if err := tx.RecordAudit(ctx, model.AuditEntry{
			Actor:      actorFromContext(ctx),
			IPAddress:  ipFromContext(ctx),
			Action:     model.AuditEditSignup,
			EventID:    ev.ID,
			EventName:  ev.Title,
			SignupID:   signup.ID,
			SignupName: auditName(signup),
		}); err != nil {
			return fmt.Errorf("audit edit: %w", err)
		}

		if s.notifier != nil && signup.Email != "" {
			email := signup.Email
			event := *ev
			sent := signup
			hookCtx := context.WithoutCancel(ctx)
			hooks.Add(func() error {
				return s.notifier.SignupConfirmation(hookCtx, email, event, sent)
			})
		}

		updated = &signup
		return nil
	})
	if err != nil {
		return nil, err
	}

	hooks.Run()
	s.invalidateEvent(ctx, eventID)
	return updated, nil
}

// DeleteSignup removes the caller's own signup. The registration window must
// still be open.
func (s *Service) DeleteSignup(ctx context.Context, signupID, editToken string) error {
	if !s.tokens.Verify(signupID, editToken) {
		return ErrBadCredential
	}
	return s.deleteSignup(ctx, signupID, false)
}

// DeleteSignupAsAdmin removes any active signup regardless of the
// registration window.
func (s *Service) DeleteSignupAsAdmin(ctx context.Context, signupID string) error {
	return s.deleteSignup(ctx, signupID, true)
}

func (s *Service) deleteSignup(ctx context.Context, signupID string, admin bool) error {
	hooks := &HookQueue{}
	var eventID string

	err := s.store.RunSerializable(ctx, func(tx Tx) error {
		hooks.Reset()
		sw, ev, err := tx.ActiveSignup(ctx, signupID, s.activityCutoff())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNoSuchSignup
			}
			return err
		}
		if !admin && !ev.SignupsOpen(s.now()) {
			return ErrSignupsClosed
		}

		ev, err = tx.LockEvent(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}
		eventID = ev.ID

		if err := tx.DeleteSignup(ctx, signupID); err != nil {
			return fmt.Errorf("delete signup: %w", err)
		}

		// Deletion only frees capacity; nobody can be demoted by it.
		if _, err := s.recompute(ctx, tx, ev, true, hooks); err != nil {
			return err
		}

		return tx.RecordAudit(ctx, model.AuditEntry{
			Actor:      actorFromContext(ctx),
			IPAddress:  ipFromContext(ctx),
			Action:     model.AuditDeleteSignup,
			EventID:    ev.ID,
			EventName:  ev.Title,
			SignupID:   signupID,
			SignupName: auditName(sw.Signup),
		})
	})
	if err != nil {
		return err
	}

	hooks.Run()
	s.invalidateEvent(ctx, eventID)
	logSignup(signupID, eventID).Info("signup deleted")
	return nil
}

// PurgeUnconfirmed deletes the event's unconfirmed signups older than the
// grace period and advances the queue accordingly. Used by the maintenance
// job; demotions are impossible since only departures happen.
func (s *Service) PurgeUnconfirmed(ctx context.Context, eventID string) (int64, error) {
	hooks := &HookQueue{}
	var purged int64

	err := s.store.RunSerializable(ctx, func(tx Tx) error {
		hooks.Reset()
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		purged, err = tx.DeleteUnconfirmedSignups(ctx, eventID, s.activityCutoff())
		if err != nil {
			return fmt.Errorf("delete unconfirmed: %w", err)
		}
		if purged == 0 {
			return nil
		}
		_, err = s.recompute(ctx, tx, ev, true, hooks)
		return err
	})
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		hooks.Run()
		s.invalidateEvent(ctx, eventID)
	}
	return purged, nil
}

// Audit metadata travels on the request context.

type contextKey string

const (
	actorKey contextKey = "audit.actor"
	ipKey    contextKey = "audit.ip"
)

// WithActor records the acting user (admin email) on the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// WithIP records the client address on the context.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey, ip)
}

func actorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey).(string); ok {
		return v
	}
	return ""
}

func ipFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ipKey).(string); ok {
		return v
	}
	return ""
}
