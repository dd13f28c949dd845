package service

import (
	"context"
	"errors"
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
	"github.com/noyon-ahamed/are-you-okay/internal/logger"
	"github.com/noyon-ahamed/are-you-okay/internal/models"
	"github.com/noyon-ahamed/are-you-okay/internal/repository"

	"github.com/google/uuid"
)

// ErrAlreadyCheckedIn is returned when the user has already checked in today.
var ErrAlreadyCheckedIn = errors.New("already checked in today")

// ICheckInService handles the daily "I'm okay" flow.
type ICheckInService interface {
	CheckIn(ctx context.Context, userID string, req *models.CheckInRequest) (*models.CheckIn, int, error)
	History(ctx context.Context, userID string, limit int) ([]models.CheckIn, error)
}

type CheckInService struct {
	users    repository.IUserRepository
	checkIns repository.ICheckInRepository
	log      *logger.Logger
}

func NewCheckInService(users repository.IUserRepository, checkIns repository.ICheckInRepository, log *logger.Logger) *CheckInService {
	return &CheckInService{users: users, checkIns: checkIns, log: log}
}

// CheckIn records today's check-in and returns it with the updated streak.
// Checking in on consecutive days extends the streak; a gap resets it to 1.
func (s *CheckInService) CheckIn(ctx context.Context, userID string, req *models.CheckInRequest) (*models.CheckIn, int, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	existing, err := s.checkIns.FindSince(ctx, userID, dayStart)
	if err != nil {
		return nil, 0, err
	}
	if existing != nil {
		return nil, 0, ErrAlreadyCheckedIn
	}

	streak := 1
	if user.LastCheckIn != nil {
		last := *user.LastCheckIn
		lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, now.Location())
		if dayStart.Sub(lastDay) == 24*time.Hour {
			streak = user.CheckInStreak + 1
		}
	}

	var location geo.Point
	switch {
	case req.Location != nil:
		location = *req.Location
	case user.Location != nil:
		location = *user.Location
	}

	checkIn := &models.CheckIn{
		ID:       uuid.New().String(),
		UserID:   userID,
		Status:   orDefault(req.Status, "okay"),
		Note:     req.Note,
		Location: location,
	}

	if err := s.checkIns.Create(ctx, checkIn); err != nil {
		return nil, 0, err
	}

	if err := s.users.RecordCheckIn(ctx, userID, checkIn.Location, streak); err != nil {
		return nil, 0, err
	}

	s.log.Info("User %s checked in (streak %d)", userID, streak)
	return checkIn, streak, nil
}

// History returns the user's recent check-ins, newest first.
func (s *CheckInService) History(ctx context.Context, userID string, limit int) ([]models.CheckIn, error) {
	return s.checkIns.ListByUser(ctx, userID, limit)
}
