package service

import (
	"context"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/notification"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"

	"github.com/google/uuid"
)

// CheckInMonitorService scans for users whose last check-in is older than the
// grace period and raises missed-check-in alerts for them. One pass handles
// every overdue user; a failure for one user never aborts the rest.
type CheckInMonitorService struct {
	users       repository.IUserRepository
	contacts    repository.IContactRepository
	alerts      repository.IAlertRepository
	dispatcher  IDispatchService
	hub         RealtimeEmitter
	gracePeriod time.Duration
	dedupWindow time.Duration
	log         *logger.Logger
}

func NewCheckInMonitorService(
	users repository.IUserRepository,
	contacts repository.IContactRepository,
	alerts repository.IAlertRepository,
	dispatcher IDispatchService,
	hub RealtimeEmitter,
	gracePeriod, dedupWindow time.Duration,
	log *logger.Logger,
) *CheckInMonitorService {
	return &CheckInMonitorService{
		users:       users,
		contacts:    contacts,
		alerts:      alerts,
		dispatcher:  dispatcher,
		hub:         hub,
		gracePeriod: gracePeriod,
		dedupWindow: dedupWindow,
		log:         log,
	}
}

// Run executes one scan pass. Invoked on a schedule; never concurrently with
// itself.
func (s *CheckInMonitorService) Run(ctx context.Context) {
	cutoff := time.Now().Add(-s.gracePeriod)

	users, err := s.users.FindInactiveSince(ctx, cutoff)
	if err != nil {
		s.log.Error("Inactivity scan failed to list users: %v", err)
		return
	}

	if len(users) == 0 {
		s.log.Debug("Inactivity scan: no overdue users")
		return
	}

	s.log.Info("Inactivity scan: %d users past the %v grace period", len(users), s.gracePeriod)

	var alerted int
	for i := range users {
		if ctx.Err() != nil {
			s.log.Warn("Inactivity scan cancelled after %d users", i)
			return
		}
		if s.processUser(ctx, &users[i]) {
			alerted++
		}
	}

	s.log.Info("Inactivity scan complete: %d alerts raised", alerted)
}

// processUser raises one alert for one overdue user. Returns true when an
// alert was created and dispatched.
func (s *CheckInMonitorService) processUser(ctx context.Context, user *models.User) bool {
	recent, err := s.alerts.HasRecentAlert(ctx, user.ID, models.AlertMissedCheckIn, s.dedupWindow)
	if err != nil {
		s.log.Error("Dedup check failed for user %s: %v", user.ID, err)
		return false
	}
	if recent {
		s.log.Info("Skipping user %s: missed-check-in alert already raised within %v", user.ID, s.dedupWindow)
		return false
	}

	contacts, err := s.contacts.ListByUser(ctx, user.ID)
	if err != nil {
		s.log.Error("Failed to list contacts for user %s: %v", user.ID, err)
		return false
	}
	if len(contacts) == 0 {
		s.log.Warn("User %s is overdue but has no emergency contacts", user.ID)
		return false
	}

	message, err := notification.Render(notification.TemplateMissedCheckIn, map[string]string{
		"userName":  user.Name,
		"userPhone": user.Phone,
	})
	if err != nil {
		s.log.Error("Failed to render alert message for user %s: %v", user.ID, err)
		return false
	}

	alert := &models.Alert{
		ID:          uuid.New().String(),
		UserID:      user.ID,
		AlertType:   models.AlertMissedCheckIn,
		TriggeredAt: time.Now(),
		TriggeredBy: models.TriggeredBySystem,
		Location:    user.Location,
		Message:     message,
		Priority:    models.PriorityHigh,
		State:       models.StateCreated,
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		s.log.Error("Failed to create alert for user %s: %v", user.ID, err)
		return false
	}

	content := notification.Content{
		Subject: "Emergency Alert: " + user.Name + " has not checked in",
		Body:    message,
		Data: map[string]string{
			"alert_id":   alert.ID,
			"alert_type": alert.AlertType,
		},
	}

	if err := s.dispatcher.Dispatch(ctx, alert, contacts, content, PolicyFor(user)); err != nil {
		s.log.Error("Fan-out failed for alert %s: %v", alert.ID, err)
		return false
	}

	if err := s.users.IncrementMissedCount(ctx, user.ID); err != nil {
		s.log.Error("Failed to bump missed counter for user %s: %v", user.ID, err)
	}

	if s.hub != nil {
		s.hub.EmitToUser(user.ID, "missed_checkin_alert", alert)
	}

	// Nudge the user's own device as well, in case they are fine and simply
	// forgot to check in.
	reminder := notification.Content{
		Subject: "Are you okay?",
		Body:    "You haven't checked in for a while. Your emergency contacts have been notified. Open the app to check in.",
		Data:    map[string]string{"alert_id": alert.ID},
	}
	if err := s.dispatcher.PushToUser(ctx, user, reminder); err != nil {
		s.log.Warn("Reminder push to user %s failed: %v", user.ID, err)
	}

	s.log.Info("Missed-check-in alert %s dispatched to %d contacts for user %s", alert.ID, len(contacts), user.ID)
	return true
}
