package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignupsOpen(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	cases := []struct {
		name       string
		start, end *time.Time
		open       bool
	}{
		{"inside window", &before, &after, true},
		{"at start", &now, &after, true},
		{"at end", &before, &now, true},
		{"not started", &after, &after, false},
		{"already ended", &before, &before, false},
		{"no start", nil, &after, false},
		{"no end", &before, nil, false},
		{"unconfigured", nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := Event{RegistrationStartDate: tc.start, RegistrationEndDate: tc.end}
			assert.Equal(t, tc.open, ev.SignupsOpen(now))
		})
	}
}

func TestSignupActive(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	confirmed := now.Add(-2 * time.Hour)

	cases := []struct {
		name   string
		signup Signup
		active bool
	}{
		{"confirmed long ago", Signup{CreatedAt: now.Add(-3 * time.Hour), ConfirmedAt: &confirmed}, true},
		{"unconfirmed within grace", Signup{CreatedAt: now.Add(-29 * time.Minute)}, true},
		{"unconfirmed past grace", Signup{CreatedAt: now.Add(-31 * time.Minute)}, false},
		{"unconfirmed exactly at grace", Signup{CreatedAt: now.Add(-ConfirmationGracePeriod)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.active, tc.signup.Active(now))
		})
	}
}
