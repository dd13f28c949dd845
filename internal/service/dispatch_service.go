package service

import (
	"context"
	"sync"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/notification"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"
)

// ChannelPolicy selects which channels a contact fan-out uses. Voice calls
// are a premium feature, so the policy is derived from the user's plan.
// Device push goes to the user's own phone via PushToUser and is not a
// contact channel.
type ChannelPolicy struct {
	SMS   bool
	Call  bool
	Email bool
}

// PolicyFor returns the channel set a user's plan entitles them to.
func PolicyFor(user *models.User) ChannelPolicy {
	return ChannelPolicy{
		SMS:   true,
		Email: true,
		Call:  user.IsPremium(),
	}
}

// IDispatchService fans an alert out to its contacts.
type IDispatchService interface {
	Dispatch(ctx context.Context, alert *models.Alert, contacts []models.EmergencyContact, content notification.Content, policy ChannelPolicy) error
	PushToUser(ctx context.Context, user *models.User, content notification.Content) error
	Drain(timeout time.Duration)
}

// DispatchService delivers one alert to every contact over every enabled
// channel. Contacts are processed concurrently under a worker cap; inside a
// contact, channels run concurrently too. A channel failure is recorded on
// that channel's status and never stops the others.
type DispatchService struct {
	alerts   repository.IAlertRepository
	channels notification.Channels
	log      *logger.Logger

	workers  chan struct{}
	timeout  time.Duration
	inFlight sync.WaitGroup
}

func NewDispatchService(alerts repository.IAlertRepository, channels notification.Channels, workers int, providerTimeout time.Duration, log *logger.Logger) *DispatchService {
	return &DispatchService{
		alerts:   alerts,
		channels: channels,
		log:      log,
		workers:  make(chan struct{}, workers),
		timeout:  providerTimeout,
	}
}

// Dispatch moves the alert to NOTIFYING, attempts delivery to every contact,
// then writes the complete delivery list and the NOTIFIED state back in one
// store write. The alert must still be in CREATED.
//
// Caller cancellation does not reach the provider sends or the delivery
// write: once a dispatch starts it runs to completion, bounded only by the
// per-provider timeout. Shutdown waits for in-flight dispatches via Drain.
func (s *DispatchService) Dispatch(ctx context.Context, alert *models.Alert, contacts []models.EmergencyContact, content notification.Content, policy ChannelPolicy) error {
	ctx = context.WithoutCancel(ctx)

	if err := s.alerts.UpdateState(ctx, alert.ID, models.StateCreated, models.StateNotifying); err != nil {
		return err
	}
	alert.State = models.StateNotifying

	deliveries := make([]models.ContactDelivery, len(contacts))
	for i := range contacts {
		deliveries[i] = models.NewContactDelivery(&contacts[i])
	}

	var wg sync.WaitGroup
	for i := range deliveries {
		wg.Add(1)
		s.inFlight.Add(1)
		go func(d *models.ContactDelivery) {
			defer wg.Done()
			defer s.inFlight.Done()

			s.workers <- struct{}{}
			defer func() { <-s.workers }()

			s.notifyContact(ctx, d, content, policy)
		}(&deliveries[i])
	}
	wg.Wait()

	if err := s.alerts.SetDeliveries(ctx, alert.ID, deliveries, models.StateNotified); err != nil {
		return err
	}

	alert.ContactsNotified = deliveries
	alert.State = models.StateNotified
	return nil
}

// notifyContact runs the enabled channels for one contact in parallel. Each
// channel writes only its own fields of the delivery record, so no locking is
// needed across them.
func (s *DispatchService) notifyContact(ctx context.Context, d *models.ContactDelivery, content notification.Content, policy ChannelPolicy) {
	var wg sync.WaitGroup

	if policy.SMS && d.Phone != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.send(ctx, s.channels.SMS, d.Phone, content)
			if err != nil {
				s.log.Warn("SMS to %s failed: %v", d.Phone, err)
				d.SMSStatus = models.SMSFailed
				return
			}
			now := time.Now()
			d.SMSStatus = models.SMSSent
			d.SMSSentAt = &now
			d.SMSMessageID = id
		}()
	}

	if policy.Call && d.Phone != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sid, err := s.send(ctx, s.channels.Call, d.Phone, content)
			if err != nil {
				s.log.Warn("Call to %s failed: %v", d.Phone, err)
				d.CallStatus = models.CallFailed
				return
			}
			now := time.Now()
			d.CallStatus = models.CallInitiated
			d.CallInitiatedAt = &now
			d.CallSID = sid
		}()
	}

	if policy.Email && d.Email != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.send(ctx, s.channels.Email, d.Email, content); err != nil {
				s.log.Warn("Email to %s failed: %v", d.Email, err)
				d.EmailStatus = models.EmailFailed
				return
			}
			now := time.Now()
			d.EmailStatus = models.EmailSent
			d.EmailSentAt = &now
		}()
	}

	wg.Wait()
}

// send runs one provider call under the per-provider timeout.
func (s *DispatchService) send(ctx context.Context, sender notification.Sender, dest string, content notification.Content) (string, error) {
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return sender.Send(sendCtx, dest, content)
}

// PushToUser sends a push notification directly to a user's device, outside
// the contact fan-out. No-op when the user has no registered token.
func (s *DispatchService) PushToUser(ctx context.Context, user *models.User, content notification.Content) error {
	if user.PushToken == "" || s.channels.Push == nil {
		return nil
	}
	_, err := s.send(ctx, s.channels.Push, user.PushToken, content)
	return err
}

// Drain blocks until all in-flight contact deliveries finish, or the timeout
// elapses. Called during graceful shutdown.
func (s *DispatchService) Drain(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("Dispatch drain timed out after %v with deliveries in flight", timeout)
	}
}
