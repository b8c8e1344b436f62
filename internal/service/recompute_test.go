package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsignup/internal/model"
	"eventsignup/internal/token"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func intp(n int) *int { return &n }

const testSecret = "test-secret"

func newTestService(store *memStore, notifier *memNotifier) *Service {
	return New(store, store, notifier, token.New(testSecret), nil, testClock)
}

// seedEvent creates an event with an open registration window and one quota.
func seedEvent(store *memStore, openQuotaSize int, quotaSize *int) (*model.Event, *model.Quota) {
	start := testNow.Add(-time.Hour)
	end := testNow.Add(time.Hour)
	ev := &model.Event{
		ID:                    "ev1",
		Title:                 "Spring Meetup",
		Slug:                  "spring-meetup",
		RegistrationStartDate: &start,
		RegistrationEndDate:   &end,
		OpenQuotaSize:         openQuotaSize,
		Listed:                true,
		NameQuestion:          true,
		EmailQuestion:         true,
		UpdatedAt:             testNow.Add(-time.Hour),
	}
	q := &model.Quota{ID: "q1", EventID: ev.ID, Title: "General", Size: quotaSize}
	store.events[ev.ID] = ev
	store.quotas[q.ID] = q
	return ev, q
}

// seedSignup inserts a confirmed signup with a precomputed placement.
func seedSignup(store *memStore, id, quotaID string, age time.Duration, status model.SignupStatus, position int) *model.Signup {
	created := testNow.Add(-age)
	confirmed := created.Add(time.Minute)
	s := &model.Signup{
		ID:          id,
		QuotaID:     quotaID,
		FirstName:   "Reg",
		LastName:    id,
		Email:       id + "@example.com",
		ConfirmedAt: &confirmed,
		Status:      status,
		Position:    intp(position),
		CreatedAt:   created,
	}
	store.signups[id] = s
	return s
}

func TestRecomputeAdvancesQueueAfterDeparture(t *testing.T) {
	store := newMemStore()
	notifier := &memNotifier{}
	svc := newTestService(store, notifier)

	seedEvent(store, 1, intp(2))
	seedSignup(store, "s1", "q1", 50*time.Minute, model.StatusInQuota, 1)
	seedSignup(store, "s2", "q1", 40*time.Minute, model.StatusInQuota, 2)
	seedSignup(store, "s3", "q1", 30*time.Minute, model.StatusInOpen, 1)
	seedSignup(store, "s4", "q1", 20*time.Minute, model.StatusInQueue, 1)

	err := svc.DeleteSignupAsAdmin(context.Background(), "s2")
	require.NoError(t, err)

	_, stillThere := store.signups["s2"]
	assert.False(t, stillThere)

	assert.Equal(t, model.StatusInQuota, store.signups["s1"].Status)
	assert.Equal(t, 1, *store.signups["s1"].Position)
	assert.Equal(t, model.StatusInQuota, store.signups["s3"].Status)
	assert.Equal(t, 2, *store.signups["s3"].Position)
	assert.Equal(t, model.StatusInOpen, store.signups["s4"].Status)
	assert.Equal(t, 1, *store.signups["s4"].Position)

	// s4 left the queue: one promotion notification and one audit record.
	assert.Equal(t, []string{"s4@example.com"}, notifier.promoted)
	var promotions int
	for _, entry := range store.audits {
		if entry.Action == model.AuditPromoteSignup {
			promotions++
			assert.Equal(t, "s4", entry.SignupID)
			assert.Equal(t, "internal", entry.Actor)
		}
	}
	assert.Equal(t, 1, promotions)
}

func TestRecomputeRejectsDemotionWithoutConsent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memNotifier{})

	_, q := seedEvent(store, 0, intp(2))
	seedSignup(store, "s1", "q1", 50*time.Minute, model.StatusInQuota, 1)
	seedSignup(store, "s2", "q1", 40*time.Minute, model.StatusInQuota, 2)

	// Capacity disappears out from under the placed signups.
	q.Size = intp(0)

	_, err := svc.RecomputeEvent(context.Background(), "ev1", false)
	var demote *WouldDemoteToQueueError
	require.ErrorAs(t, err, &demote)
	assert.Equal(t, 2, demote.Count)

	// Nothing was persisted.
	assert.Equal(t, model.StatusInQuota, store.signups["s1"].Status)
	assert.Equal(t, model.StatusInQuota, store.signups["s2"].Status)
	assert.Equal(t, 0, store.positionWrites)

	// The same recomputation goes through once demotion is accepted.
	result, err := svc.RecomputeEvent(context.Background(), "ev1", true)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, model.StatusInQueue, store.signups["s1"].Status)
	assert.Equal(t, 1, *store.signups["s1"].Position)
	assert.Equal(t, model.StatusInQueue, store.signups["s2"].Status)
	assert.Equal(t, 2, *store.signups["s2"].Position)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memNotifier{})

	seedEvent(store, 1, intp(1))
	seedSignup(store, "s1", "q1", 50*time.Minute, model.StatusUnset, 0)
	seedSignup(store, "s2", "q1", 40*time.Minute, model.StatusUnset, 0)
	seedSignup(store, "s3", "q1", 30*time.Minute, model.StatusUnset, 0)
	// Seeded placements are meaningless; zero them so the first run writes all.
	for _, s := range store.signups {
		s.Position = nil
	}

	first, err := svc.RecomputeEvent(context.Background(), "ev1", true)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, 3, store.positionWrites)

	second, err := svc.RecomputeEvent(context.Background(), "ev1", true)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// A recomputation with no changes writes nothing back.
	assert.Equal(t, 3, store.positionWrites)
}

func TestRecomputeSkipsExpiredUnconfirmed(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memNotifier{})

	seedEvent(store, 0, intp(1))
	seedSignup(store, "s1", "q1", 50*time.Minute, model.StatusInQuota, 1)
	// Unconfirmed and past the grace period: no longer counts.
	stale := &model.Signup{
		ID:        "s0",
		QuotaID:   "q1",
		CreatedAt: testNow.Add(-45 * time.Minute),
	}
	store.signups["s0"] = stale

	result, err := svc.RecomputeEvent(context.Background(), "ev1", false)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "s1", result[0].SignupID)
	assert.Equal(t, model.StatusInQuota, result[0].Status)
}

func TestPromotionMailSentOnceAfterRetriedTransaction(t *testing.T) {
	store := newMemStore()
	notifier := &memNotifier{}
	svc := New(&retryStore{memStore: store}, store, notifier, token.New(testSecret), nil, testClock)

	seedEvent(store, 0, intp(1))
	seedSignup(store, "s1", "q1", 50*time.Minute, model.StatusInQuota, 1)
	seedSignup(store, "s2", "q1", 40*time.Minute, model.StatusInQueue, 1)

	// The first transaction attempt rolls back; only the replay commits, so
	// the promotion must be delivered exactly once.
	require.NoError(t, svc.DeleteSignupAsAdmin(context.Background(), "s1"))

	assert.Equal(t, model.StatusInQuota, store.signups["s2"].Status)
	assert.Equal(t, []string{"s2@example.com"}, notifier.promoted)
}

func TestRecomputeTieBreaksOnID(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memNotifier{})

	seedEvent(store, 0, intp(1))
	// Identical creation instants: the id decides who holds the slot.
	created := testNow.Add(-40 * time.Minute)
	confirmed := created.Add(time.Minute)
	for _, id := range []string{"b", "a"} {
		store.signups[id] = &model.Signup{
			ID: id, QuotaID: "q1", CreatedAt: created, ConfirmedAt: &confirmed,
		}
	}

	result, err := svc.RecomputeEvent(context.Background(), "ev1", true)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "a", result[0].SignupID)
	assert.Equal(t, model.StatusInQuota, result[0].Status)
	assert.Equal(t, "b", result[1].SignupID)
	assert.Equal(t, model.StatusInQueue, result[1].Status)
}

func TestRecomputeEventAndGet(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memNotifier{})

	seedEvent(store, 0, intp(1))
	seedSignup(store, "s1", "q1", 50*time.Minute, model.StatusInQuota, 1)
	seedSignup(store, "s2", "q1", 40*time.Minute, model.StatusInQueue, 1)

	pos, err := svc.RecomputeEventAndGet(context.Background(), "ev1", "s2")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInQueue, pos.Status)
	assert.Equal(t, 1, pos.Position)

	_, err = svc.RecomputeEventAndGet(context.Background(), "ev1", "nope")
	assert.Error(t, err)
}

func TestRecomputeUnknownEvent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &memNotifier{})

	_, err := svc.RecomputeEvent(context.Background(), "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}
