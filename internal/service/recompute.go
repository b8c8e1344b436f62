package service

import (
	"context"
	"errors"
	"fmt"

	"eventsignup/internal/allocator"
	"eventsignup/internal/model"
)

// recompute reassigns status and position for every active signup of the
// event. The caller must already hold the event row lock inside tx.
//
// Only rows whose assignment actually changed are written back. Promotions
// out of the wait-queue are audited in-transaction and their notifications
// are deferred onto hooks, which the caller runs after commit.
func (s *Service) recompute(ctx context.Context, tx Tx, ev *model.Event, allowQueueDemotion bool, hooks *HookQueue) ([]model.SignupPosition, error) {
	cutoff := s.now().Add(-model.ConfirmationGracePeriod)
	signups, err := tx.ActiveSignupsForUpdate(ctx, ev.ID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load active signups: %w", err)
	}

	items := make([]allocator.Item, len(signups))
	for i, sw := range signups {
		items[i] = allocator.Item{
			SignupID:   sw.Signup.ID,
			QuotaID:    sw.Quota.ID,
			QuotaSize:  sw.Quota.Size,
			PrevStatus: sw.Signup.Status,
		}
	}

	res := allocator.Assign(items, ev.OpenQuotaSize)
	if res.MovedToQueue > 0 && !allowQueueDemotion {
		return nil, &WouldDemoteToQueueError{Count: res.MovedToQueue}
	}

	for i, sw := range signups {
		old := sw.Signup
		a := res.Assignments[i]

		if old.Status != a.Status || old.Position == nil || *old.Position != a.Position {
			if err := tx.UpdateSignupPosition(ctx, a.SignupID, a.Status, a.Position); err != nil {
				return nil, fmt.Errorf("persist position: %w", err)
			}
		}

		// Promotion: the signup leaves the wait-queue for a real slot.
		if old.Status == model.StatusInQueue && a.Status != model.StatusInQueue {
			entry := model.AuditEntry{
				Actor:      "internal",
				IPAddress:  "internal",
				Action:     model.AuditPromoteSignup,
				EventID:    ev.ID,
				EventName:  ev.Title,
				SignupID:   old.ID,
				SignupName: old.FirstName + " " + old.LastName,
			}
			if err := tx.RecordAudit(ctx, entry); err != nil {
				return nil, fmt.Errorf("audit promotion: %w", err)
			}
			if s.notifier != nil && hooks != nil && old.Email != "" {
				email := old.Email
				event := *ev
				hookCtx := context.WithoutCancel(ctx)
				hooks.Add(func() error {
					return s.notifier.PromotedFromQueue(hookCtx, email, event)
				})
			}
		}
	}

	return res.Assignments, nil
}

// RecomputeEvent recomputes all signup positions for one event. With
// allowQueueDemotion false it fails with WouldDemoteToQueueError instead of
// moving anyone into the queue.
func (s *Service) RecomputeEvent(ctx context.Context, eventID string, allowQueueDemotion bool) ([]model.SignupPosition, error) {
	var result []model.SignupPosition
	hooks := &HookQueue{}
	err := s.store.RunSerializable(ctx, func(tx Tx) error {
		hooks.Reset()
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}
		result, err = s.recompute(ctx, tx, ev, allowQueueDemotion, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	hooks.Run()
	s.invalidateEvent(ctx, eventID)
	return result, nil
}

// RecomputeEventAndGet recomputes the event and returns the placement of one
// particular signup.
func (s *Service) RecomputeEventAndGet(ctx context.Context, eventID, signupID string) (*model.SignupPosition, error) {
	result, err := s.RecomputeEvent(ctx, eventID, true)
	if err != nil {
		return nil, err
	}
	pos := findPosition(result, signupID)
	if pos == nil {
		return nil, errors.New("failed to compute status")
	}
	return pos, nil
}

func findPosition(assignments []model.SignupPosition, signupID string) *model.SignupPosition {
	for i := range assignments {
		if assignments[i].SignupID == signupID {
			return &assignments[i]
		}
	}
	return nil
}
