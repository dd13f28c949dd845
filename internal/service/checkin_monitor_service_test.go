package service

import (
	"context"
	"testing"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonitorFixture(t *testing.T) (*CheckInMonitorService, *fakeUserRepo, *fakeContactRepo, *fakeAlertRepo, *notification.MockSender) {
	t.Helper()

	users := newFakeUserRepo()
	contacts := newFakeContactRepo()
	alerts := newFakeAlertRepo()
	sms := notification.NewMockSender("sms", testLogger())

	dispatcher := NewDispatchService(alerts, notification.Channels{SMS: sms}, 4, time.Second, testLogger())
	monitor := NewCheckInMonitorService(users, contacts, alerts, dispatcher, nil,
		72*time.Hour, 24*time.Hour, testLogger())

	return monitor, users, contacts, alerts, sms
}

func overdueUser(id string, lastCheckIn time.Duration) *models.User {
	last := time.Now().Add(-lastCheckIn)
	return &models.User{
		ID:          id,
		Name:        "Noyon",
		Phone:       "+8801700000000",
		Plan:        models.PlanFree,
		IsActive:    true,
		LastCheckIn: &last,
	}
}

func TestScanRaisesAlertForOverdueUser(t *testing.T) {
	monitor, users, contacts, alerts, sms := newMonitorFixture(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, overdueUser("u1", 80*time.Hour)))
	require.NoError(t, contacts.Create(ctx, &models.EmergencyContact{
		ID: "c1", UserID: "u1", Name: "Alice", Phone: "+8801111111111", Priority: 1,
	}))
	require.NoError(t, contacts.Create(ctx, &models.EmergencyContact{
		ID: "c2", UserID: "u1", Name: "Bob", Phone: "+8802222222222", Priority: 2,
	}))

	monitor.Run(ctx)

	raised := alerts.byUser("u1")
	require.Len(t, raised, 1)

	alert := raised[0]
	assert.Equal(t, models.AlertMissedCheckIn, alert.AlertType)
	assert.Equal(t, models.TriggeredBySystem, alert.TriggeredBy)
	assert.Equal(t, models.StateNotified, alert.State)
	require.Len(t, alert.ContactsNotified, 2)

	assert.Len(t, sms.Sent(), 2)
	assert.Contains(t, sms.Sent()[0].Content.Body, "Noyon")

	users.mu.Lock()
	assert.Equal(t, 1, users.missedBumps["u1"])
	users.mu.Unlock()
}

func TestScanSkipsRecentCheckIn(t *testing.T) {
	monitor, users, contacts, alerts, _ := newMonitorFixture(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, overdueUser("u1", 10*time.Hour)))
	require.NoError(t, contacts.Create(ctx, &models.EmergencyContact{
		ID: "c1", UserID: "u1", Phone: "+8801111111111",
	}))

	monitor.Run(ctx)

	assert.Empty(t, alerts.byUser("u1"))
}

func TestScanSuppressesDuplicateWithinWindow(t *testing.T) {
	monitor, users, contacts, alerts, sms := newMonitorFixture(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, overdueUser("u1", 80*time.Hour)))
	require.NoError(t, contacts.Create(ctx, &models.EmergencyContact{
		ID: "c1", UserID: "u1", Phone: "+8801111111111",
	}))

	monitor.Run(ctx)
	monitor.Run(ctx)

	assert.Len(t, alerts.byUser("u1"), 1, "second pass inside the dedup window must not alert again")
	assert.Len(t, sms.Sent(), 1)
}

func TestScanSkipsUserWithoutContacts(t *testing.T) {
	monitor, users, _, alerts, sms := newMonitorFixture(t)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, overdueUser("u1", 100*time.Hour)))

	monitor.Run(ctx)

	assert.Empty(t, alerts.byUser("u1"))
	assert.Empty(t, sms.Sent())
}

func TestScanIsolatesUsers(t *testing.T) {
	monitor, users, contacts, alerts, _ := newMonitorFixture(t)
	ctx := context.Background()

	// u1 is overdue with no contacts, u2 is overdue with one. u1 must not
	// prevent u2's alert.
	require.NoError(t, users.Create(ctx, overdueUser("u1", 90*time.Hour)))
	u2 := overdueUser("u2", 90*time.Hour)
	u2.Name = "Rahim"
	require.NoError(t, users.Create(ctx, u2))
	require.NoError(t, contacts.Create(ctx, &models.EmergencyContact{
		ID: "c1", UserID: "u2", Phone: "+8803333333333",
	}))

	monitor.Run(ctx)

	assert.Empty(t, alerts.byUser("u1"))
	assert.Len(t, alerts.byUser("u2"), 1)
}
