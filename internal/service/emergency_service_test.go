package service

import (
	"context"
	"testing"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sosFixture(t *testing.T) (*EmergencyService, *fakeUserRepo, *fakeContactRepo, *fakeAlertRepo, *notification.MockSender) {
	t.Helper()

	users := newFakeUserRepo()
	contacts := newFakeContactRepo()
	alerts := newFakeAlertRepo()
	sms := notification.NewMockSender("sms", testLogger())

	dispatcher := NewDispatchService(alerts, notification.Channels{SMS: sms}, 4, time.Second, testLogger())
	svc := NewEmergencyService(users, contacts, alerts, dispatcher, nil, 24*time.Hour, testLogger())

	return svc, users, contacts, alerts, sms
}

func sosUser() *models.User {
	return &models.User{
		ID:       "u1",
		Name:     "Noyon",
		Phone:    "+8801700000000",
		Plan:     models.PlanFree,
		IsActive: true,
		Location: &geo.Point{Longitude: 90.41, Latitude: 23.81},
	}
}

func TestTriggerSOSNotifiesContacts(t *testing.T) {
	svc, users, contacts, _, sms := sosFixture(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, sosUser()))
	require.NoError(t, contacts.Create(ctx, &models.EmergencyContact{
		ID: "c1", UserID: "u1", Phone: "+8801111111111", Priority: 1,
	}))

	alert, err := svc.TriggerSOS(ctx, "u1", &models.SOSRequest{CustomMessage: "Trapped in building"})
	require.NoError(t, err)

	assert.Equal(t, models.AlertManualSOS, alert.AlertType)
	assert.Equal(t, models.TriggeredByUser, alert.TriggeredBy)
	assert.Equal(t, models.PriorityCritical, alert.Priority)
	assert.Equal(t, models.StateNotified, alert.State)

	require.Len(t, sms.Sent(), 1)
	assert.Contains(t, sms.Sent()[0].Content.Body, "Trapped in building")
}

func TestTriggerSOSRejectsDuplicateWithinWindow(t *testing.T) {
	svc, users, contacts, _, _ := sosFixture(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, sosUser()))
	require.NoError(t, contacts.Create(ctx, &models.EmergencyContact{
		ID: "c1", UserID: "u1", Phone: "+8801111111111",
	}))

	_, err := svc.TriggerSOS(ctx, "u1", &models.SOSRequest{})
	require.NoError(t, err)

	_, err = svc.TriggerSOS(ctx, "u1", &models.SOSRequest{})
	assert.ErrorIs(t, err, ErrDuplicateAlert)
}

func TestTriggerSOSRequiresLocation(t *testing.T) {
	svc, users, contacts, _, _ := sosFixture(t)
	ctx := context.Background()

	user := sosUser()
	user.Location = nil
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, contacts.Create(ctx, &models.EmergencyContact{
		ID: "c1", UserID: "u1", Phone: "+8801111111111",
	}))

	_, err := svc.TriggerSOS(ctx, "u1", &models.SOSRequest{})
	assert.ErrorIs(t, err, ErrMissingLocation)
}

func TestTriggerSOSRequiresContacts(t *testing.T) {
	svc, users, _, _, _ := sosFixture(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, sosUser()))

	_, err := svc.TriggerSOS(ctx, "u1", &models.SOSRequest{})
	assert.ErrorIs(t, err, ErrNoContacts)
}

func TestEscalateRecordsServiceFlags(t *testing.T) {
	svc, _, _, alerts, _ := sosFixture(t)
	ctx := context.Background()

	require.NoError(t, alerts.Create(ctx, &models.Alert{
		ID: "a1", UserID: "u1", State: models.StateNotified,
	}))

	require.NoError(t, svc.Escalate(ctx, "a1", "u1", true, false))

	alert, err := alerts.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.StateEscalated, alert.State)
	assert.True(t, alert.PoliceNotified)
	assert.NotNil(t, alert.PoliceNotifiedAt)
	assert.False(t, alert.AmbulanceNotified)

	// Terminal: cannot resolve after escalation.
	assert.Error(t, svc.Resolve(ctx, "a1", "u1", models.ResolvedByUser, ""))
}

func TestEscalateRequiresAService(t *testing.T) {
	svc, _, _, alerts, _ := sosFixture(t)
	ctx := context.Background()

	require.NoError(t, alerts.Create(ctx, &models.Alert{
		ID: "a1", UserID: "u1", State: models.StateNotified,
	}))

	assert.Error(t, svc.Escalate(ctx, "a1", "u1", false, false))
}

func TestResolveRequiresNotifiedState(t *testing.T) {
	svc, _, _, alerts, _ := sosFixture(t)
	ctx := context.Background()

	require.NoError(t, alerts.Create(ctx, &models.Alert{
		ID: "a1", UserID: "u1", State: models.StateCreated,
	}))

	err := svc.Resolve(ctx, "a1", "u1", models.ResolvedByUser, "false alarm")
	assert.Error(t, err)
}
