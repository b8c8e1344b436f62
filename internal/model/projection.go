package model

import "time"

// Per-audience projections of the domain entities. Each is a pure mapping
// from the full entity graph to the restricted shape that audience may see.

// PublicQuotaDetails is a quota as shown to unauthenticated users: the
// capacity plus how many active signups currently occupy it.
type PublicQuotaDetails struct {
	Quota
	SignupCount int            `json:"signupCount"`
	Signups     []PublicSignup `json:"signups,omitempty"`
}

// PublicSignup is what other registrants may see of a signup. Email is never
// exposed; the name only when the registrant opted in.
type PublicSignup struct {
	FirstName string       `json:"firstName,omitempty"`
	LastName  string       `json:"lastName,omitempty"`
	Status    SignupStatus `json:"status"`
	Position  *int         `json:"position"`
	CreatedAt time.Time    `json:"createdAt"`
}

// PublicEventDetails is the public view of an event.
type PublicEventDetails struct {
	Event
	Quotas    []PublicQuotaDetails `json:"quotas"`
	Questions []Question           `json:"questions"`
	InQueue   int                  `json:"inQueue"`
}

// PublicEventListItem is one row of the public event list.
type PublicEventListItem struct {
	ID                    string     `json:"id"`
	Title                 string     `json:"title"`
	Slug                  string     `json:"slug"`
	Date                  *time.Time `json:"date"`
	Location              string     `json:"location"`
	Category              string     `json:"category"`
	RegistrationStartDate *time.Time `json:"registrationStartDate"`
	RegistrationEndDate   *time.Time `json:"registrationEndDate"`
	SignupCount           int        `json:"signupCount"`
}

// AdminEventDetails is the full event graph for admin editors.
type AdminEventDetails struct {
	Event
	Quotas    []Quota    `json:"quotas"`
	Questions []Question `json:"questions"`
	Signups   []Signup   `json:"signups"`
}

// SignupForEdit is what the signup owner sees when editing: their own row
// plus the questions and current answers.
type SignupForEdit struct {
	Signup    Signup     `json:"signup"`
	Answers   []Answer   `json:"answers"`
	Questions []Question `json:"questions"`
	Event     Event      `json:"event"`
}

// ProjectPublicSignup maps a signup to its public shape.
func ProjectPublicSignup(s Signup) PublicSignup {
	out := PublicSignup{
		Status:    s.Status,
		Position:  s.Position,
		CreatedAt: s.CreatedAt,
	}
	if s.NamePublic {
		out.FirstName = s.FirstName
		out.LastName = s.LastName
	}
	return out
}
