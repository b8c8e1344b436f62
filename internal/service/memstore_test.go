package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"eventsignup/internal/model"
)

// memStore is an in-memory Store/Tx/Reader used by the service tests. It
// mimics the transactional contract by snapshotting state before each
// RunSerializable call and restoring it when fn returns an error.
type memStore struct {
	events    map[string]*model.Event
	quotas    map[string]*model.Quota
	signups   map[string]*model.Signup
	questions map[string][]model.Question
	answers   map[string][]model.Answer
	audits    []model.AuditEntry

	// positionWrites counts committed UpdateSignupPosition calls.
	positionWrites int
}

func newMemStore() *memStore {
	return &memStore{
		events:    map[string]*model.Event{},
		quotas:    map[string]*model.Quota{},
		signups:   map[string]*model.Signup{},
		questions: map[string][]model.Question{},
		answers:   map[string][]model.Answer{},
	}
}

func (m *memStore) RunSerializable(_ context.Context, fn func(tx Tx) error) error {
	snap := m.snapshot()
	writes := m.positionWrites
	if err := fn(&memTx{m}); err != nil {
		m.restore(snap)
		m.positionWrites = writes
		return err
	}
	return nil
}

type memSnapshot struct {
	events    map[string]*model.Event
	quotas    map[string]*model.Quota
	signups   map[string]*model.Signup
	questions map[string][]model.Question
	answers   map[string][]model.Answer
	audits    []model.AuditEntry
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		events:    map[string]*model.Event{},
		quotas:    map[string]*model.Quota{},
		signups:   map[string]*model.Signup{},
		questions: map[string][]model.Question{},
		answers:   map[string][]model.Answer{},
		audits:    slices.Clone(m.audits),
	}
	for id, ev := range m.events {
		cp := *ev
		s.events[id] = &cp
	}
	for id, q := range m.quotas {
		cp := *q
		s.quotas[id] = &cp
	}
	for id, su := range m.signups {
		cp := *su
		if su.Position != nil {
			p := *su.Position
			cp.Position = &p
		}
		s.signups[id] = &cp
	}
	for id, qs := range m.questions {
		s.questions[id] = slices.Clone(qs)
	}
	for id, as := range m.answers {
		s.answers[id] = slices.Clone(as)
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.events = s.events
	m.quotas = s.quotas
	m.signups = s.signups
	m.questions = s.questions
	m.answers = s.answers
	m.audits = s.audits
}

// ─── Reader ───────────────────────────────────────────────────────────────────

func (m *memStore) ListPublicEvents(_ context.Context) ([]model.PublicEventListItem, error) {
	var out []model.PublicEventListItem
	for _, ev := range m.events {
		if ev.Draft || !ev.Listed {
			continue
		}
		out = append(out, model.PublicEventListItem{ID: ev.ID, Title: ev.Title, Slug: ev.Slug})
	}
	return out, nil
}

func (m *memStore) PublicEventDetails(_ context.Context, eventID string, _ time.Time) (*model.PublicEventDetails, error) {
	ev, ok := m.events[eventID]
	if !ok || ev.Draft {
		return nil, ErrNotFound
	}
	return &model.PublicEventDetails{Event: *ev}, nil
}

func (m *memStore) AdminEventDetails(_ context.Context, eventID string) (*model.AdminEventDetails, error) {
	ev, ok := m.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	out := &model.AdminEventDetails{Event: *ev, Questions: m.questions[eventID]}
	for _, q := range m.quotas {
		if q.EventID == eventID {
			out.Quotas = append(out.Quotas, *q)
		}
	}
	slices.SortFunc(out.Quotas, func(a, b model.Quota) int { return a.Order - b.Order })
	for _, s := range m.signups {
		if q, ok := m.quotas[s.QuotaID]; ok && q.EventID == eventID {
			out.Signups = append(out.Signups, *s)
		}
	}
	return out, nil
}

// ─── Tx ───────────────────────────────────────────────────────────────────────

type memTx struct {
	m *memStore
}

func (t *memTx) LockEvent(_ context.Context, eventID string) (*model.Event, error) {
	ev, ok := t.m.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *ev
	return &cp, nil
}

func (t *memTx) QuotaWithVisibleEvent(_ context.Context, quotaID string) (*model.Quota, *model.Event, error) {
	q, ok := t.m.quotas[quotaID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	ev, ok := t.m.events[q.EventID]
	if !ok || ev.Draft {
		return nil, nil, ErrNotFound
	}
	qc, ec := *q, *ev
	return &qc, &ec, nil
}

func (t *memTx) InsertEvent(_ context.Context, ev *model.Event) error {
	cp := *ev
	t.m.events[ev.ID] = &cp
	return nil
}

func (t *memTx) UpdateEvent(_ context.Context, ev *model.Event) error {
	if _, ok := t.m.events[ev.ID]; !ok {
		return ErrNotFound
	}
	cp := *ev
	t.m.events[ev.ID] = &cp
	return nil
}

func (t *memTx) EventQuotas(_ context.Context, eventID string) ([]model.Quota, error) {
	var out []model.Quota
	for _, q := range t.m.quotas {
		if q.EventID == eventID {
			out = append(out, *q)
		}
	}
	slices.SortFunc(out, func(a, b model.Quota) int { return a.Order - b.Order })
	return out, nil
}

func (t *memTx) UpsertQuota(_ context.Context, q *model.Quota) error {
	cp := *q
	t.m.quotas[q.ID] = &cp
	return nil
}

func (t *memTx) DeleteQuotasExcept(_ context.Context, eventID string, keepIDs []string) error {
	for id, q := range t.m.quotas {
		if q.EventID == eventID && !slices.Contains(keepIDs, id) {
			for sid, s := range t.m.signups {
				if s.QuotaID == id {
					delete(t.m.signups, sid)
					delete(t.m.answers, sid)
				}
			}
			delete(t.m.quotas, id)
		}
	}
	return nil
}

func (t *memTx) EventQuestions(_ context.Context, eventID string) ([]model.Question, error) {
	return slices.Clone(t.m.questions[eventID]), nil
}

func (t *memTx) ReplaceQuestions(_ context.Context, eventID string, questions []model.Question) error {
	t.m.questions[eventID] = slices.Clone(questions)
	return nil
}

func (t *memTx) InsertSignup(_ context.Context, s *model.Signup) error {
	cp := *s
	t.m.signups[s.ID] = &cp
	return nil
}

func (t *memTx) ActiveSignup(_ context.Context, signupID string, cutoff time.Time) (*model.SignupWithQuota, *model.Event, error) {
	s, ok := t.m.signups[signupID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if s.ConfirmedAt == nil && !s.CreatedAt.After(cutoff) {
		return nil, nil, ErrNotFound
	}
	q, ok := t.m.quotas[s.QuotaID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	ev, ok := t.m.events[q.EventID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	sc, qc, ec := *s, *q, *ev
	return &model.SignupWithQuota{Signup: sc, Quota: qc}, &ec, nil
}

func (t *memTx) ActiveSignupsForUpdate(_ context.Context, eventID string, cutoff time.Time) ([]model.SignupWithQuota, error) {
	var out []model.SignupWithQuota
	for _, s := range t.m.signups {
		q, ok := t.m.quotas[s.QuotaID]
		if !ok || q.EventID != eventID {
			continue
		}
		if s.ConfirmedAt == nil && !s.CreatedAt.After(cutoff) {
			continue
		}
		out = append(out, model.SignupWithQuota{Signup: *s, Quota: *q})
	}
	slices.SortFunc(out, func(a, b model.SignupWithQuota) int {
		if !a.Signup.CreatedAt.Equal(b.Signup.CreatedAt) {
			if a.Signup.CreatedAt.Before(b.Signup.CreatedAt) {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Signup.ID, b.Signup.ID)
	})
	return out, nil
}

func (t *memTx) UpdateSignupPosition(_ context.Context, signupID string, status model.SignupStatus, position int) error {
	s, ok := t.m.signups[signupID]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	p := position
	s.Position = &p
	t.m.positionWrites++
	return nil
}

func (t *memTx) UpdateSignupFields(_ context.Context, s *model.Signup) error {
	stored, ok := t.m.signups[s.ID]
	if !ok {
		return ErrNotFound
	}
	stored.FirstName = s.FirstName
	stored.LastName = s.LastName
	stored.Email = s.Email
	stored.NamePublic = s.NamePublic
	stored.ConfirmedAt = s.ConfirmedAt
	return nil
}

func (t *memTx) DeleteSignup(_ context.Context, signupID string) error {
	delete(t.m.signups, signupID)
	delete(t.m.answers, signupID)
	return nil
}

func (t *memTx) SignupAnswers(_ context.Context, signupID string) ([]model.Answer, error) {
	return slices.Clone(t.m.answers[signupID]), nil
}

func (t *memTx) ReplaceAnswers(_ context.Context, signupID string, answers []model.Answer) error {
	t.m.answers[signupID] = slices.Clone(answers)
	return nil
}

func (t *memTx) DeleteUnconfirmedSignups(_ context.Context, eventID string, cutoff time.Time) (int64, error) {
	var n int64
	for id, s := range t.m.signups {
		q, ok := t.m.quotas[s.QuotaID]
		if !ok || q.EventID != eventID {
			continue
		}
		if s.ConfirmedAt == nil && !s.CreatedAt.After(cutoff) {
			delete(t.m.signups, id)
			delete(t.m.answers, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) RecordAudit(_ context.Context, entry model.AuditEntry) error {
	t.m.audits = append(t.m.audits, entry)
	return nil
}

// retryStore replays every transaction body once with a rollback in between,
// the way the pgx store replays fn after a serialization conflict.
type retryStore struct {
	*memStore
}

func (r *retryStore) RunSerializable(ctx context.Context, fn func(tx Tx) error) error {
	snap := r.snapshot()
	writes := r.positionWrites
	_ = fn(&memTx{r.memStore})
	r.restore(snap)
	r.positionWrites = writes
	return r.memStore.RunSerializable(ctx, fn)
}

// ─── Notifier ─────────────────────────────────────────────────────────────────

// memNotifier records outgoing notifications.
type memNotifier struct {
	promoted  []string
	confirmed []string
}

func (n *memNotifier) PromotedFromQueue(_ context.Context, email string, _ model.Event) error {
	n.promoted = append(n.promoted, email)
	return nil
}

func (n *memNotifier) SignupConfirmation(_ context.Context, email string, _ model.Event, _ model.Signup) error {
	n.confirmed = append(n.confirmed, email)
	return nil
}
