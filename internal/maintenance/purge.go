// Package maintenance runs the periodic purge of abandoned signups:
// unconfirmed registrations older than the grace period are deleted and the
// queues they blocked advance. All position changes funnel through the
// recomputation coordinator, never around it.
package maintenance

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"eventsignup/internal/model"
	"eventsignup/internal/service"
)

// Store is what the purge needs from storage: the transactional engine plus
// a scan for events that have expired unconfirmed signups.
type Store interface {
	EventsWithExpiredUnconfirmed(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Purger deletes abandoned signups on a fixed interval.
type Purger struct {
	store    Store
	svc      *service.Service
	interval time.Duration
	clock    service.Clock
}

// New constructs a Purger. A nil clock means wall-clock time.
func New(store Store, svc *service.Service, interval time.Duration, clock service.Clock) *Purger {
	if clock == nil {
		clock = time.Now
	}
	return &Purger{store: store, svc: svc, interval: interval, clock: clock}
}

// Run loops until ctx is cancelled.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge sweep. Events are handled one at a time to
// avoid piling up concurrent serializable transactions.
func (p *Purger) RunOnce(ctx context.Context) {
	cutoff := p.clock().UTC().Add(-model.ConfirmationGracePeriod)
	eventIDs, err := p.store.EventsWithExpiredUnconfirmed(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("purge scan failed")
		return
	}
	if len(eventIDs) == 0 {
		return
	}

	for _, eventID := range eventIDs {
		purged, err := p.svc.PurgeUnconfirmed(ctx, eventID)
		if err != nil {
			logrus.WithError(err).WithField("event", eventID).Error("purge failed")
			continue
		}
		if purged > 0 {
			logrus.WithFields(logrus.Fields{
				"event":  eventID,
				"purged": purged,
			}).Info("deleted unconfirmed signups")
		}
	}
}
