package model

import "time"

// CreateSignupRequest is the payload for registering into a quota.
type CreateSignupRequest struct {
	QuotaID string `json:"quotaId"`
}

// CreateSignupResponse returns the new signup's id and its edit credential.
type CreateSignupResponse struct {
	ID        string `json:"id"`
	EditToken string `json:"editToken"`
}

// AnswerInput is one submitted answer.
type AnswerInput struct {
	QuestionID string   `json:"questionId"`
	Answer     []string `json:"answer"`
}

// UpdateSignupRequest is the payload for editing/confirming a signup.
type UpdateSignupRequest struct {
	FirstName  string        `json:"firstName"`
	LastName   string        `json:"lastName"`
	Email      string        `json:"email"`
	NamePublic bool          `json:"namePublic"`
	Answers    []AnswerInput `json:"answers"`
}

// QuotaInput is one quota row in an admin event update. A nil ID inserts a
// new quota; an existing ID resizes/renames it in place.
type QuotaInput struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Size  *int   `json:"size"`
}

// QuestionInput is one question row in an admin event update.
type QuestionInput struct {
	ID       string       `json:"id,omitempty"`
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options"`
	Required bool         `json:"required"`
	Public   bool         `json:"public"`
}

// UpdateEventRequest is the admin event editor payload. UpdatedAt must match
// the stored row for the edit to apply (optimistic concurrency).
// MoveSignupsToQueue acknowledges that the edit may demote confirmed signups
// into the wait-queue; without it such edits are rejected.
type UpdateEventRequest struct {
	Title                 string          `json:"title"`
	Slug                  string          `json:"slug"`
	Date                  *time.Time      `json:"date"`
	Location              string          `json:"location"`
	Description           string          `json:"description"`
	Price                 string          `json:"price"`
	Category              string          `json:"category"`
	RegistrationStartDate *time.Time      `json:"registrationStartDate"`
	RegistrationEndDate   *time.Time      `json:"registrationEndDate"`
	OpenQuotaSize         int             `json:"openQuotaSize"`
	Draft                 bool            `json:"draft"`
	Listed                bool            `json:"listed"`
	SignupsPublic         bool            `json:"signupsPublic"`
	NameQuestion          bool            `json:"nameQuestion"`
	EmailQuestion         bool            `json:"emailQuestion"`
	Quotas                []QuotaInput    `json:"quotas"`
	Questions             []QuestionInput `json:"questions"`
	UpdatedAt             time.Time       `json:"updatedAt"`
	MoveSignupsToQueue    bool            `json:"moveSignupsToQueue"`
}
