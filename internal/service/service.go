// Package service implements the signup-position engine: the recomputation
// coordinator, the signup lifecycle operations, and the admin event editor.
// It speaks to storage only through the Store/Tx interfaces so the engine is
// independent of the concrete database.
package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"eventsignup/internal/model"
	"eventsignup/internal/token"
)

// Reader serves read-only queries that run outside the transactional engine.
type Reader interface {
	ListPublicEvents(ctx context.Context) ([]model.PublicEventListItem, error)
	// PublicEventDetails returns the public projection of a visible event;
	// cutoff is the activity horizon for counting signups.
	PublicEventDetails(ctx context.Context, eventID string, cutoff time.Time) (*model.PublicEventDetails, error)
	AdminEventDetails(ctx context.Context, eventID string) (*model.AdminEventDetails, error)
}

// EventCache caches public event payloads. Implementations must tolerate
// being handed a nil receiver-free value; a nil EventCache disables caching.
type EventCache interface {
	GetEvent(ctx context.Context, eventID string) (*model.PublicEventDetails, bool)
	SetEvent(ctx context.Context, details *model.PublicEventDetails)
	Invalidate(ctx context.Context, eventID string)
}

// Service wires the engine's collaborators together.
type Service struct {
	store    Store
	reader   Reader
	notifier Notifier
	tokens   token.Codec
	cache    EventCache
	clock    Clock
}

// New constructs the service. notifier, cache and clock may be nil; a nil
// clock means wall-clock time.
func New(store Store, reader Reader, notifier Notifier, tokens token.Codec, cache EventCache, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:    store,
		reader:   reader,
		notifier: notifier,
		tokens:   tokens,
		cache:    cache,
		clock:    clock,
	}
}

func (s *Service) now() time.Time { return s.clock().UTC() }

func (s *Service) activityCutoff() time.Time {
	return s.now().Add(-model.ConfirmationGracePeriod)
}

func (s *Service) invalidateEvent(ctx context.Context, eventID string) {
	if s.cache == nil || eventID == "" {
		return
	}
	s.cache.Invalidate(ctx, eventID)
}

// ListEvents returns the public event list.
func (s *Service) ListEvents(ctx context.Context) ([]model.PublicEventListItem, error) {
	return s.reader.ListPublicEvents(ctx)
}

// GetEvent returns the public projection of one event, served from cache
// when possible.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*model.PublicEventDetails, error) {
	if s.cache != nil {
		if details, ok := s.cache.GetEvent(ctx, eventID); ok {
			return details, nil
		}
	}
	details, err := s.reader.PublicEventDetails(ctx, eventID, s.activityCutoff())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetEvent(ctx, details)
	}
	return details, nil
}

// GetAdminEvent returns the full event graph for admin editors.
func (s *Service) GetAdminEvent(ctx context.Context, eventID string) (*model.AdminEventDetails, error) {
	return s.reader.AdminEventDetails(ctx, eventID)
}

func auditName(s model.Signup) string {
	name := s.FirstName + " " + s.LastName
	if name == " " {
		return ""
	}
	return name
}

func logSignup(signupID, eventID string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"signup": signupID,
		"event":  eventID,
	})
}
