package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noyon-ahamed/are-you-okay/internal/models"
)

func TestHasRecentAlert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", models.AlertMissedCheckIn, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	suppress, err := repo.HasRecentAlert(context.Background(), "user-1", models.AlertMissedCheckIn, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, suppress)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", models.AlertManualSOS, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	suppress, err = repo.HasRecentAlert(context.Background(), "user-1", models.AlertManualSOS, 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, suppress)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetDeliveriesSingleWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	deliveries := []models.ContactDelivery{
		{ContactID: "c1", Name: "Rahim", SMSStatus: models.SMSSent, CallStatus: models.CallPending,
			EmailStatus: models.EmailPending, PushStatus: models.PushPending},
		{ContactID: "c2", Name: "Karim", SMSStatus: models.SMSFailed, CallStatus: models.CallPending,
			EmailStatus: models.EmailSent, PushStatus: models.PushPending},
	}
	payload, err := json.Marshal(deliveries)
	require.NoError(t, err)

	// The whole delivery list and the state land in one UPDATE.
	mock.ExpectExec("UPDATE emergency_alerts SET contacts_notified").
		WithArgs("alert-1", payload, models.StateNotified).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetDeliveries(context.Background(), "alert-1", deliveries, models.StateNotified)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStateRejectsIllegalTransition(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	// NOTIFIED never moves back to CREATED; no query should be issued.
	err = repo.UpdateState(context.Background(), "alert-1", models.StateNotified, models.StateCreated)
	assert.Error(t, err)
}

func TestUpdateStateGuardsPreviousState(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAlertRepository(db)

	mock.ExpectExec("UPDATE emergency_alerts SET state").
		WithArgs("alert-1", models.StateCreated, models.StateNotifying).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// A concurrent writer already advanced the alert: zero rows means error.
	err = repo.UpdateState(context.Background(), "alert-1", models.StateCreated, models.StateNotifying)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
