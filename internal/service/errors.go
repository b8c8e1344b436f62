package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoSuchQuota is returned when the target quota does not exist or its
// event is not publicly visible.
var ErrNoSuchQuota = errors.New("quota doesn't exist")

// ErrNoSuchSignup is returned when the target signup does not exist or is no
// longer active.
var ErrNoSuchSignup = errors.New("signup expired or already deleted")

// ErrSignupsClosed is returned when the event's registration window is not
// currently open.
var ErrSignupsClosed = errors.New("signups closed for this event")

// ErrBadCredential is returned when an edit token does not match the signup.
var ErrBadCredential = errors.New("invalid edit token")

// WouldDemoteToQueueError aborts a recomputation that would move signups
// into the wait-queue when the caller has not accepted demotions.
type WouldDemoteToQueueError struct {
	Count int
}

func (e *WouldDemoteToQueueError) Error() string {
	return fmt.Sprintf("edit would move %d signups into the queue", e.Count)
}

// InvalidAnswerError reports a structurally invalid or missing answer to a
// signup question.
type InvalidAnswerError struct {
	QuestionID string
	Question   string
	Reason     string
}

func (e *InvalidAnswerError) Error() string {
	return fmt.Sprintf("invalid answer to question %q: %s", e.Question, e.Reason)
}

// EditConflictError is returned when an admin edit was based on a stale copy
// of the event.
type EditConflictError struct {
	UpdatedAt time.Time
}

func (e *EditConflictError) Error() string {
	return fmt.Sprintf("event was modified at %s, reload and retry", e.UpdatedAt.Format(time.RFC3339))
}
