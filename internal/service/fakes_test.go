package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"
	"github.com/noyon-ahamed/are-you-okay/internal/usgs"
)

func testLogger() *logger.Logger {
	log, _ := logger.New(logger.Config{Level: logger.ERROR, Mode: logger.MINIMAL})
	return log
}

// fakeEmitter records realtime events instead of writing to sessions.
type emittedEvent struct {
	userID  string
	msgType string
	payload interface{}
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (f *fakeEmitter) EmitToUser(userID, msgType string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emittedEvent{userID: userID, msgType: msgType, payload: payload})
}

func (f *fakeEmitter) byType(msgType string) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emittedEvent
	for _, e := range f.events {
		if e.msgType == msgType {
			out = append(out, e)
		}
	}
	return out
}

// fakeUserRepo is an in-memory IUserRepository.
type fakeUserRepo struct {
	mu          sync.Mutex
	users       map[string]*models.User
	nearby      []repository.NearbyUser
	missedBumps map[string]int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:       make(map[string]*models.User),
		missedBumps: make(map[string]int),
	}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (f *fakeUserRepo) FindInactiveSince(_ context.Context, cutoff time.Time) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, u := range f.users {
		if !u.IsActive {
			continue
		}
		if u.LastCheckIn == nil || u.LastCheckIn.Before(cutoff) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) FindActiveNear(_ context.Context, _ geo.Point, radiusKm float64) ([]repository.NearbyUser, error) {
	var out []repository.NearbyUser
	for _, u := range f.nearby {
		if u.DistanceKm <= radiusKm {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) RecordCheckIn(_ context.Context, id string, loc geo.Point, streak int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return errors.New("user not found")
	}
	now := time.Now()
	u.LastCheckIn = &now
	u.CheckInStreak = streak
	u.MissedCheckInCount = 0
	u.Location = &loc
	return nil
}

func (f *fakeUserRepo) IncrementMissedCount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missedBumps[id]++
	return nil
}

func (f *fakeUserRepo) UpdatePushToken(_ context.Context, id, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.PushToken = token
	}
	return nil
}

// fakeContactRepo is an in-memory IContactRepository.
type fakeContactRepo struct {
	mu       sync.Mutex
	contacts map[string][]models.EmergencyContact // keyed by user id
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: make(map[string][]models.EmergencyContact)}
}

func (f *fakeContactRepo) Create(_ context.Context, c *models.EmergencyContact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts[c.UserID] = append(f.contacts[c.UserID], *c)
	return nil
}

func (f *fakeContactRepo) GetByID(_ context.Context, id, userID string) (*models.EmergencyContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contacts[userID] {
		if f.contacts[userID][i].ID == id {
			c := f.contacts[userID][i]
			return &c, nil
		}
	}
	return nil, errors.New("contact not found")
}

func (f *fakeContactRepo) ListByUser(_ context.Context, userID string) ([]models.EmergencyContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.EmergencyContact, len(f.contacts[userID]))
	copy(out, f.contacts[userID])
	return out, nil
}

func (f *fakeContactRepo) CountByUser(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.contacts[userID]), nil
}

func (f *fakeContactRepo) Update(_ context.Context, c *models.EmergencyContact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contacts[c.UserID] {
		if f.contacts[c.UserID][i].ID == c.ID {
			f.contacts[c.UserID][i] = *c
			return nil
		}
	}
	return errors.New("contact not found")
}

func (f *fakeContactRepo) Delete(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.contacts[userID]
	for i := range list {
		if list[i].ID == id {
			f.contacts[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return errors.New("contact not found")
}

func (f *fakeContactRepo) SetVerified(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.contacts[userID] {
		if f.contacts[userID][i].ID == id {
			f.contacts[userID][i].Verified = true
			return nil
		}
	}
	return errors.New("contact not found")
}

// fakeAlertRepo is an in-memory IAlertRepository.
type fakeAlertRepo struct {
	mu             sync.Mutex
	alerts         map[string]*models.Alert
	deliveryWrites int
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]*models.Alert)}
}

func (f *fakeAlertRepo) Create(_ context.Context, alert *models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *alert
	f.alerts[alert.ID] = &stored
	return nil
}

func (f *fakeAlertRepo) GetByID(_ context.Context, id string) (*models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok {
		return nil, errors.New("alert not found")
	}
	copied := *a
	return &copied, nil
}

func (f *fakeAlertRepo) HasRecentAlert(_ context.Context, userID, alertType string, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-window)
	for _, a := range f.alerts {
		if a.UserID == userID && a.AlertType == alertType && a.TriggeredAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAlertRepo) UpdateState(_ context.Context, id string, from, to models.AlertState) error {
	if !models.CanTransition(from, to) {
		return errors.New("illegal transition")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok || a.State != from {
		return errors.New("alert not in expected state")
	}
	a.State = to
	return nil
}

func (f *fakeAlertRepo) SetDeliveries(_ context.Context, id string, deliveries []models.ContactDelivery, state models.AlertState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok {
		return errors.New("alert not found")
	}
	a.ContactsNotified = deliveries
	a.State = state
	f.deliveryWrites++
	return nil
}

func (f *fakeAlertRepo) Resolve(_ context.Context, id, userID, resolvedBy, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok || a.UserID != userID || a.State != models.StateNotified {
		return errors.New("alert not resolvable")
	}
	now := time.Now()
	a.Resolved = true
	a.ResolvedAt = &now
	a.ResolvedBy = resolvedBy
	a.ResolutionNote = note
	a.State = models.StateResolved
	return nil
}

func (f *fakeAlertRepo) Escalate(_ context.Context, id, userID string, police, ambulance bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok || a.UserID != userID || a.State != models.StateNotified {
		return errors.New("alert not escalatable")
	}
	now := time.Now()
	a.State = models.StateEscalated
	if police {
		a.PoliceNotified = true
		a.PoliceNotifiedAt = &now
	}
	if ambulance {
		a.AmbulanceNotified = true
		a.AmbulanceNotifiedAt = &now
	}
	return nil
}

func (f *fakeAlertRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Alert
	for _, a := range f.alerts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAlertRepo) CountByUser(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.alerts {
		if a.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAlertRepo) DeleteResolvedOlderThan(_ context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var deleted int64
	for id, a := range f.alerts {
		if a.Resolved && a.ResolvedAt != nil && a.ResolvedAt.Before(cutoff) {
			delete(f.alerts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeAlertRepo) byUser(userID string) []*models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Alert
	for _, a := range f.alerts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}

// fakeQuakeRepo is an in-memory IEarthquakeRepository.
type fakeQuakeRepo struct {
	mu     sync.Mutex
	events map[string]*models.EarthquakeEvent
}

func newFakeQuakeRepo() *fakeQuakeRepo {
	return &fakeQuakeRepo{events: make(map[string]*models.EarthquakeEvent)}
}

func (f *fakeQuakeRepo) Create(_ context.Context, event *models.EarthquakeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[event.EventID]; ok {
		return repository.ErrDuplicateEvent
	}
	stored := *event
	f.events[event.EventID] = &stored
	return nil
}

func (f *fakeQuakeRepo) ExistsByEventID(_ context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.events[eventID]
	return ok, nil
}

func (f *fakeQuakeRepo) SetUsersNotified(_ context.Context, eventID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return errors.New("event not found")
	}
	e.UsersNotified = count
	return nil
}

func (f *fakeQuakeRepo) ListRecentNear(_ context.Context, _ geo.Point, _ float64, _ int) ([]models.EarthquakeEvent, error) {
	return nil, nil
}

// fakeFeed serves a fixed event list.
type fakeFeed struct {
	events []usgs.Event
	err    error
}

func (f *fakeFeed) RecentEvents(_ context.Context) ([]usgs.Event, error) {
	return f.events, f.err
}
