package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"eventsignup/internal/model"
)

// CreateEvent inserts a new event with its quotas and questions. No
// recomputation is needed since a new event has no signups.
func (s *Service) CreateEvent(ctx context.Context, req model.UpdateEventRequest) (*model.AdminEventDetails, error) {
	eventID := uuid.NewString()

	err := s.store.RunSerializable(ctx, func(tx Tx) error {
		now := s.now()
		ev := &model.Event{
			ID:        eventID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyEventFields(ev, req)
		if err := tx.InsertEvent(ctx, ev); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := s.applyQuotas(ctx, tx, eventID, req.Quotas, nil); err != nil {
			return err
		}
		if err := tx.ReplaceQuestions(ctx, eventID, buildQuestions(eventID, req.Questions)); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return tx.RecordAudit(ctx, model.AuditEntry{
			Actor:     actorFromContext(ctx),
			IPAddress: ipFromContext(ctx),
			Action:    model.AuditEditEvent,
			EventID:   eventID,
			EventName: ev.Title,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.reader.AdminEventDetails(ctx, eventID)
}

// UpdateEvent applies an admin edit: event fields, quota resizes and
// question changes, then a recomputation in the same transaction. The edit
// must be based on the stored UpdatedAt; demotions into the queue are
// rejected unless the caller set MoveSignupsToQueue.
func (s *Service) UpdateEvent(ctx context.Context, eventID string, req model.UpdateEventRequest) (*model.AdminEventDetails, error) {
	hooks := &HookQueue{}

	err := s.store.RunSerializable(ctx, func(tx Tx) error {
		hooks.Reset()
		ev, err := tx.LockEvent(ctx, eventID)
		if err != nil {
			return err
		}

		if !ev.UpdatedAt.Equal(req.UpdatedAt) {
			return &EditConflictError{UpdatedAt: ev.UpdatedAt}
		}

		existingQuotas, err := tx.EventQuotas(ctx, eventID)
		if err != nil {
			return err
		}
		existingQuestions, err := tx.EventQuestions(ctx, eventID)
		if err != nil {
			return err
		}
		// A referenced id that no longer exists means the edit is based on a
		// stale copy.
		if staleQuotaRef(req.Quotas, existingQuotas) || staleQuestionRef(req.Questions, existingQuestions) {
			return &EditConflictError{UpdatedAt: ev.UpdatedAt}
		}

		wasPublic := !ev.Draft
		applyEventFields(ev, req)
		ev.UpdatedAt = s.now()
		if err := tx.UpdateEvent(ctx, ev); err != nil {
			return fmt.Errorf("update event: %w", err)
		}

		if err := s.applyQuotas(ctx, tx, eventID, req.Quotas, existingQuotas); err != nil {
			return err
		}
		if err := tx.ReplaceQuestions(ctx, eventID, buildQuestions(eventID, req.Questions)); err != nil {
			return fmt.Errorf("replace questions: %w", err)
		}

		if _, err := s.recompute(ctx, tx, ev, req.MoveSignupsToQueue, hooks); err != nil {
			return err
		}

		isPublic := !ev.Draft
		action := model.AuditEditEvent
		if isPublic != wasPublic {
			if isPublic {
				action = model.AuditPublishEvent
			} else {
				action = model.AuditUnpublishEvent
			}
		}
		return tx.RecordAudit(ctx, model.AuditEntry{
			Actor:     actorFromContext(ctx),
			IPAddress: ipFromContext(ctx),
			Action:    action,
			EventID:   eventID,
			EventName: ev.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	hooks.Run()
	s.invalidateEvent(ctx, eventID)
	return s.reader.AdminEventDetails(ctx, eventID)
}

// applyQuotas upserts the submitted quotas in display order and removes the
// ones no longer referenced.
func (s *Service) applyQuotas(ctx context.Context, tx Tx, eventID string, inputs []model.QuotaInput, existing []model.Quota) error {
	keep := make([]string, 0, len(inputs))
	for order, in := range inputs {
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		keep = append(keep, id)
		q := &model.Quota{
			ID:      id,
			EventID: eventID,
			Order:   order,
			Title:   in.Title,
			Size:    in.Size,
		}
		if err := tx.UpsertQuota(ctx, q); err != nil {
			return fmt.Errorf("upsert quota: %w", err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := tx.DeleteQuotasExcept(ctx, eventID, keep); err != nil {
		return fmt.Errorf("delete quotas: %w", err)
	}
	return nil
}

func buildQuestions(eventID string, inputs []model.QuestionInput) []model.Question {
	questions := make([]model.Question, 0, len(inputs))
	for order, in := range inputs {
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		questions = append(questions, model.Question{
			ID:       id,
			EventID:  eventID,
			Order:    order,
			Question: in.Question,
			Type:     in.Type,
			Options:  in.Options,
			Required: in.Required,
			Public:   in.Public,
		})
	}
	return questions
}

func applyEventFields(ev *model.Event, req model.UpdateEventRequest) {
	ev.Title = req.Title
	ev.Slug = req.Slug
	ev.Date = req.Date
	ev.Location = req.Location
	ev.Description = req.Description
	ev.Price = req.Price
	ev.Category = req.Category
	ev.RegistrationStartDate = req.RegistrationStartDate
	ev.RegistrationEndDate = req.RegistrationEndDate
	ev.OpenQuotaSize = req.OpenQuotaSize
	ev.Draft = req.Draft
	ev.Listed = req.Listed
	ev.SignupsPublic = req.SignupsPublic
	ev.NameQuestion = req.NameQuestion
	ev.EmailQuestion = req.EmailQuestion
}

func staleQuotaRef(inputs []model.QuotaInput, existing []model.Quota) bool {
	ids := make(map[string]struct{}, len(existing))
	for _, q := range existing {
		ids[q.ID] = struct{}{}
	}
	for _, in := range inputs {
		if in.ID == "" {
			continue
		}
		if _, ok := ids[in.ID]; !ok {
			return true
		}
	}
	return false
}

func staleQuestionRef(inputs []model.QuestionInput, existing []model.Question) bool {
	ids := make(map[string]struct{}, len(existing))
	for _, q := range existing {
		ids[q.ID] = struct{}{}
	}
	for _, in := range inputs {
		if in.ID == "" {
			continue
		}
		if _, ok := ids[in.ID]; !ok {
			return true
		}
	}
	return false
}
