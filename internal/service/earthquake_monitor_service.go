package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/notification"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"
	"github.com/noyon-ahamed/are-you-okay/internal/usgs"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SeismicFeed is the external event source consumed by the monitor.
type SeismicFeed interface {
	RecentEvents(ctx context.Context) ([]usgs.Event, error)
}

// EarthquakeMonitorService polls the seismic feed and pushes warnings to
// users near a new event's epicenter. Seen event ids are kept in an in-memory
// LRU so repeated feed entries are dropped without a store round-trip; the
// store's unique event id constraint backs that up across restarts.
type EarthquakeMonitorService struct {
	feed       SeismicFeed
	users      repository.IUserRepository
	quakes     repository.IEarthquakeRepository
	dispatcher IDispatchService
	hub        RealtimeEmitter
	seen       *lru.Cache[string, struct{}]
	radiusKm   float64
	log        *logger.Logger
}

func NewEarthquakeMonitorService(
	feed SeismicFeed,
	users repository.IUserRepository,
	quakes repository.IEarthquakeRepository,
	dispatcher IDispatchService,
	hub RealtimeEmitter,
	cacheSize int,
	radiusKm float64,
	log *logger.Logger,
) (*EarthquakeMonitorService, error) {
	seen, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create event cache: %w", err)
	}

	return &EarthquakeMonitorService{
		feed:       feed,
		users:      users,
		quakes:     quakes,
		dispatcher: dispatcher,
		hub:        hub,
		seen:       seen,
		radiusKm:   radiusKm,
		log:        log,
	}, nil
}

// Run executes one poll pass. A feed fetch failure aborts the whole tick; the
// next tick retries from scratch.
func (s *EarthquakeMonitorService) Run(ctx context.Context) {
	events, err := s.feed.RecentEvents(ctx)
	if err != nil {
		s.log.Error("Earthquake feed poll failed: %v", err)
		return
	}

	for i := range events {
		if ctx.Err() != nil {
			return
		}
		s.processEvent(ctx, &events[i])
	}
}

// processEvent records one new event and notifies nearby users. Already-seen
// events are dropped silently.
func (s *EarthquakeMonitorService) processEvent(ctx context.Context, ev *usgs.Event) {
	if s.seen.Contains(ev.ID) {
		return
	}

	exists, err := s.quakes.ExistsByEventID(ctx, ev.ID)
	if err != nil {
		s.log.Error("Failed to check event %s: %v", ev.ID, err)
		return
	}
	if exists {
		s.seen.Add(ev.ID, struct{}{})
		return
	}

	event := &models.EarthquakeEvent{
		EventID:    ev.ID,
		Magnitude:  ev.Magnitude,
		Place:      ev.Place,
		Epicenter:  ev.Epicenter,
		DepthKm:    ev.DepthKm,
		OccurredAt: ev.OccurredAt,
		Tsunami:    ev.Tsunami,
		AlertLevel: ev.AlertLevel,
	}

	if err := s.quakes.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			s.seen.Add(ev.ID, struct{}{})
			return
		}
		s.log.Error("Failed to record event %s: %v", ev.ID, err)
		return
	}

	s.log.Info("New earthquake %s: M%.1f near %s", ev.ID, ev.Magnitude, ev.Place)

	notified := s.notifyNearby(ctx, event)

	if err := s.quakes.SetUsersNotified(ctx, ev.ID, notified); err != nil {
		s.log.Error("Failed to record notified count for event %s: %v", ev.ID, err)
	}

	s.seen.Add(ev.ID, struct{}{})
}

// notifyNearby warns every opted-in user within the alert radius. Returns how
// many users were actually reached.
func (s *EarthquakeMonitorService) notifyNearby(ctx context.Context, event *models.EarthquakeEvent) int {
	nearby, err := s.users.FindActiveNear(ctx, event.Epicenter, s.radiusKm)
	if err != nil {
		s.log.Error("Failed to find users near event %s: %v", event.EventID, err)
		return 0
	}

	if len(nearby) == 0 {
		return 0
	}

	message, err := notification.Render(notification.TemplateEarthquake, map[string]string{
		"magnitude": fmt.Sprintf("%.1f", event.Magnitude),
		"location":  event.Place,
	})
	if err != nil {
		s.log.Error("Failed to render earthquake message: %v", err)
		return 0
	}

	var notified int
	for i := range nearby {
		user := &nearby[i]
		if !user.QuakeAlerts {
			continue
		}

		content := notification.Content{
			Subject: fmt.Sprintf("Earthquake Alert: M%.1f near %s", event.Magnitude, event.Place),
			Body:    message,
			Data: map[string]string{
				"event_id":    event.EventID,
				"magnitude":   fmt.Sprintf("%.1f", event.Magnitude),
				"distance_km": fmt.Sprintf("%.1f", user.DistanceKm),
			},
		}

		// The realtime event goes out first: connected sessions hear about
		// the quake even when the push provider is down.
		if s.hub != nil {
			s.hub.EmitToUser(user.ID, "earthquake_alert", map[string]interface{}{
				"event":       event,
				"distance_km": user.DistanceKm,
			})
		}

		if err := s.dispatcher.PushToUser(ctx, &user.User, content); err != nil {
			s.log.Warn("Earthquake push to user %s failed: %v", user.ID, err)
			continue
		}
		if user.PushToken != "" {
			notified++
		}
	}

	s.log.Info("Earthquake %s: %d of %d nearby users notified", event.EventID, notified, len(nearby))
	return notified
}
