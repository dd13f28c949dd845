package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/notification"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"

	"github.com/google/uuid"
)

var (
	// ErrMissingLocation is returned for an SOS without a location when the
	// user has no stored location either.
	ErrMissingLocation = errors.New("no location available for SOS alert")

	// ErrNoContacts is returned when the user has no emergency contacts.
	ErrNoContacts = errors.New("no emergency contacts configured")

	// ErrDuplicateAlert is returned when an alert of the same type was
	// already triggered within the dedup window.
	ErrDuplicateAlert = errors.New("a recent alert of this type already exists")
)

// IEmergencyService covers manual SOS and alert lifecycle operations.
type IEmergencyService interface {
	TriggerSOS(ctx context.Context, userID string, req *models.SOSRequest) (*models.Alert, error)
	Resolve(ctx context.Context, alertID, userID, resolvedBy, note string) error
	Escalate(ctx context.Context, alertID, userID string, police, ambulance bool) error
	History(ctx context.Context, userID string, limit, offset int) ([]models.Alert, int, error)
}

type EmergencyService struct {
	users       repository.IUserRepository
	contacts    repository.IContactRepository
	alerts      repository.IAlertRepository
	dispatcher  IDispatchService
	hub         RealtimeEmitter
	dedupWindow time.Duration
	log         *logger.Logger
}

func NewEmergencyService(
	users repository.IUserRepository,
	contacts repository.IContactRepository,
	alerts repository.IAlertRepository,
	dispatcher IDispatchService,
	hub RealtimeEmitter,
	dedupWindow time.Duration,
	log *logger.Logger,
) *EmergencyService {
	return &EmergencyService{
		users:       users,
		contacts:    contacts,
		alerts:      alerts,
		dispatcher:  dispatcher,
		hub:         hub,
		dedupWindow: dedupWindow,
		log:         log,
	}
}

// TriggerSOS creates a manual SOS alert and notifies every contact before
// returning, so the caller knows the fan-out outcome. The dedup window
// applies here too: a second SOS within it is rejected.
func (s *EmergencyService) TriggerSOS(ctx context.Context, userID string, req *models.SOSRequest) (*models.Alert, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent, err := s.alerts.HasRecentAlert(ctx, userID, models.AlertManualSOS, s.dedupWindow)
	if err != nil {
		return nil, err
	}
	if recent {
		return nil, ErrDuplicateAlert
	}

	location := req.Location
	if location == nil || location.IsZero() {
		location = user.Location
	}
	if location == nil || location.IsZero() {
		return nil, ErrMissingLocation
	}

	contacts, err := s.contacts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, ErrNoContacts
	}

	message, err := notification.Render(notification.TemplateSOS, map[string]string{
		"userName": user.Name,
		"location": fmt.Sprintf("%.5f, %.5f", location.Latitude, location.Longitude),
		"message":  orDefault(req.CustomMessage, "Please help!"),
	})
	if err != nil {
		return nil, err
	}

	alert := &models.Alert{
		ID:            uuid.New().String(),
		UserID:        userID,
		AlertType:     models.AlertManualSOS,
		TriggeredAt:   time.Now(),
		TriggeredBy:   models.TriggeredByUser,
		Location:      location,
		Message:       message,
		CustomMessage: req.CustomMessage,
		Priority:      models.PriorityCritical,
		State:         models.StateCreated,
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}

	content := notification.Content{
		Subject: "EMERGENCY: SOS alert from " + user.Name,
		Body:    message,
		Data: map[string]string{
			"alert_id":   alert.ID,
			"alert_type": alert.AlertType,
		},
	}

	if err := s.dispatcher.Dispatch(ctx, alert, contacts, content, PolicyFor(user)); err != nil {
		return nil, fmt.Errorf("sos fan-out failed: %w", err)
	}

	s.log.Info("SOS alert %s dispatched to %d contacts for user %s", alert.ID, len(contacts), userID)

	if s.hub != nil {
		s.hub.EmitToUser(userID, "sos_sent", map[string]interface{}{
			"alert_id":          alert.ID,
			"contacts_notified": len(alert.ContactsNotified),
		})
	}

	return alert, nil
}

// Resolve closes a NOTIFIED alert.
func (s *EmergencyService) Resolve(ctx context.Context, alertID, userID, resolvedBy, note string) error {
	if err := s.alerts.Resolve(ctx, alertID, userID, resolvedBy, note); err != nil {
		return err
	}

	s.log.Info("Alert %s resolved by %s", alertID, resolvedBy)

	if s.hub != nil {
		s.hub.EmitToUser(userID, "alert_resolved", map[string]string{"alert_id": alertID})
	}

	return nil
}

// Escalate flags an unresolved alert for emergency services. The alert moves
// to its terminal ESCALATED state; only the flags are recorded, the actual
// handoff to police or ambulance happens outside this system.
func (s *EmergencyService) Escalate(ctx context.Context, alertID, userID string, police, ambulance bool) error {
	if !police && !ambulance {
		return errors.New("escalation must flag at least one emergency service")
	}

	if err := s.alerts.Escalate(ctx, alertID, userID, police, ambulance); err != nil {
		return err
	}

	s.log.Warn("Alert %s escalated (police=%v ambulance=%v)", alertID, police, ambulance)

	if s.hub != nil {
		s.hub.EmitToUser(userID, "alert_escalated", map[string]interface{}{
			"alert_id":  alertID,
			"police":    police,
			"ambulance": ambulance,
		})
	}

	return nil
}

// History returns a page of the user's alerts, newest first, with the total.
func (s *EmergencyService) History(ctx context.Context, userID string, limit, offset int) ([]models.Alert, int, error) {
	alerts, err := s.alerts.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.alerts.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return alerts, total, nil
}

// CleanUpTask removes resolved alerts past the retention period. Run daily.
func (s *EmergencyService) CleanUpTask(ctx context.Context, retention time.Duration) {
	count, err := s.alerts.DeleteResolvedOlderThan(ctx, retention)
	if err != nil {
		s.log.Error("Alert cleanup failed: %v", err)
		return
	}
	if count > 0 {
		s.log.Info("Removed %d resolved alerts past retention", count)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
