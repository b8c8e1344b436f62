// Package model defines the core domain types for the event sign-up platform.
package model

import "time"

// SignupStatus is the allocator-computed placement of a signup.
// The zero value means the signup has never been through a recomputation.
type SignupStatus string

const (
	StatusUnset   SignupStatus = ""
	StatusInQuota SignupStatus = "in-quota"
	StatusInOpen  SignupStatus = "in-open"
	StatusInQueue SignupStatus = "in-queue"
)

// QuestionType enumerates the supported answer formats for signup questions.
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextArea QuestionType = "textarea"
	QuestionNumber   QuestionType = "number"
	QuestionSelect   QuestionType = "select"
	QuestionCheckbox QuestionType = "checkbox"
)

// ConfirmationGracePeriod is how long an unconfirmed signup still counts as
// active after creation. Unconfirmed signups older than this are purged by
// the maintenance job.
const ConfirmationGracePeriod = 30 * time.Minute

// Event represents a published (or draft) event with capacity-limited quotas.
type Event struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Slug                  string     `json:"slug"`
	Date                  *time.Time `json:"date"`
	Location              string     `json:"location"`
	Description           string     `json:"description"`
	Price                 string     `json:"price"`
	Category              string     `json:"category"`
	RegistrationStartDate *time.Time `json:"registrationStartDate"`
	RegistrationEndDate   *time.Time `json:"registrationEndDate"`
	OpenQuotaSize         int        `json:"openQuotaSize"`
	Draft                 bool       `json:"draft"`
	Listed                bool       `json:"listed"`
	SignupsPublic         bool       `json:"signupsPublic"`
	NameQuestion          bool       `json:"nameQuestion"`
	EmailQuestion         bool       `json:"emailQuestion"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// SignupsOpen reports whether the registration window is currently open.
// Both bounds must be set; a half-configured window never opens.
func (e *Event) SignupsOpen(now time.Time) bool {
	if e.RegistrationStartDate == nil || e.RegistrationEndDate == nil {
		return false
	}
	return !now.Before(*e.RegistrationStartDate) && !now.After(*e.RegistrationEndDate)
}

// Quota is a capacity bucket within an event. A nil Size means unlimited.
type Quota struct {
	ID      string `json:"id"`
	EventID string `json:"eventId"`
	Order   int    `json:"order"`
	Title   string `json:"title"`
	Size    *int   `json:"size"`
}

// Question is an extra field the organizer asks registrants to fill in.
type Question struct {
	ID       string       `json:"id"`
	EventID  string       `json:"eventId"`
	Order    int          `json:"order"`
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options"`
	Required bool         `json:"required"`
	Public   bool         `json:"public"`
}

// Signup is a registration targeting exactly one quota.
type Signup struct {
	ID          string       `json:"id"`
	QuotaID     string       `json:"quotaId"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	NamePublic  bool         `json:"namePublic"`
	Email       string       `json:"email"`
	ConfirmedAt *time.Time   `json:"confirmedAt"`
	Status      SignupStatus `json:"status"`
	Position    *int         `json:"position"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Active reports whether the signup still counts toward positions: it is
// confirmed, or was created within the confirmation grace period.
// The grace period is measured from CreatedAt only; edits do not extend it.
func (s *Signup) Active(now time.Time) bool {
	if s.ConfirmedAt != nil {
		return true
	}
	return now.Sub(s.CreatedAt) < ConfirmationGracePeriod
}

// Answer holds one signup's answer to one question. The value is a list of
// selected options for checkbox questions and a single-element list (or
// empty) for everything else.
type Answer struct {
	QuestionID string   `json:"questionId"`
	SignupID   string   `json:"signupId"`
	Answer     []string `json:"answer"`
}

// SignupWithQuota is the allocator's view of one active signup: the signup
// joined with its quota's capacity.
type SignupWithQuota struct {
	Signup Signup
	Quota  Quota
}

// SignupPosition is one row of a recomputation result.
type SignupPosition struct {
	SignupID string       `json:"id"`
	Status   SignupStatus `json:"status"`
	Position int          `json:"position"`
}

// AuditAction enumerates the audit log action kinds.
type AuditAction string

const (
	AuditPromoteSignup  AuditAction = "signup.queuePromote"
	AuditEditSignup     AuditAction = "signup.edit"
	AuditDeleteSignup   AuditAction = "signup.delete"
	AuditEditEvent      AuditAction = "event.edit"
	AuditPublishEvent   AuditAction = "event.publish"
	AuditUnpublishEvent AuditAction = "event.unpublish"
)

// AuditEntry is one audit log row. Actor and IP come from the request
// context; internal jobs record the reserved actor "internal".
type AuditEntry struct {
	Actor      string      `json:"actor"`
	IPAddress  string      `json:"ipAddress"`
	Action     AuditAction `json:"action"`
	EventID    string      `json:"eventId"`
	EventName  string      `json:"eventName"`
	SignupID   string      `json:"signupId"`
	SignupName string      `json:"signupName"`
	Extra      string      `json:"extra"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
