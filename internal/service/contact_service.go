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
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Verification codes stay valid long enough for an SMS round-trip. With one
// step of skew either way, a code is accepted for up to 15 minutes.
var verifyOpts = totp.ValidateOpts{
	Period: 300,
	Skew:   1,
	Digits: otp.DigitsSix,
}

var (
	// ErrContactLimit is returned when adding a contact would exceed the
	// user's plan limit.
	ErrContactLimit = errors.New("contact limit reached for current plan")

	// ErrInvalidOTP is returned for a wrong or expired verification code.
	ErrInvalidOTP = errors.New("invalid verification code")
)

// IContactService manages a user's ranked emergency contacts.
type IContactService interface {
	Add(ctx context.Context, userID string, req *models.ContactRequest) (*models.EmergencyContact, error)
	List(ctx context.Context, userID string) ([]models.EmergencyContact, error)
	Update(ctx context.Context, userID, contactID string, req *models.ContactRequest) (*models.EmergencyContact, error)
	Remove(ctx context.Context, userID, contactID string) error
	SendVerification(ctx context.Context, userID, contactID string) error
	Verify(ctx context.Context, userID, contactID, code string) error
}

type ContactService struct {
	users        repository.IUserRepository
	contacts     repository.IContactRepository
	sms          notification.Sender
	freeLimit    int
	premiumLimit int
	log          *logger.Logger
}

func NewContactService(
	users repository.IUserRepository,
	contacts repository.IContactRepository,
	sms notification.Sender,
	freeLimit, premiumLimit int,
	log *logger.Logger,
) *ContactService {
	return &ContactService{
		users:        users,
		contacts:     contacts,
		sms:          sms,
		freeLimit:    freeLimit,
		premiumLimit: premiumLimit,
		log:          log,
	}
}

// Add creates a contact. When no priority is given, the contact goes to the
// end of the ranking.
func (s *ContactService) Add(ctx context.Context, userID string, req *models.ContactRequest) (*models.EmergencyContact, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.contacts.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	limit := s.freeLimit
	if user.IsPremium() {
		limit = s.premiumLimit
	}
	if count >= limit {
		return nil, ErrContactLimit
	}

	priority := count + 1
	if req.Priority != nil {
		priority = *req.Priority
	}

	secret, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "are-you-okay",
		AccountName: req.Phone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification secret: %w", err)
	}

	contact := &models.EmergencyContact{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Relation:  req.Relation,
		Priority:  priority,
		OTPSecret: secret.Secret(),
	}

	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

func (s *ContactService) List(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	return s.contacts.ListByUser(ctx, userID)
}

func (s *ContactService) Update(ctx context.Context, userID, contactID string, req *models.ContactRequest) (*models.EmergencyContact, error) {
	contact, err := s.contacts.GetByID(ctx, contactID, userID)
	if err != nil {
		return nil, err
	}

	contact.Name = req.Name
	contact.Phone = req.Phone
	contact.Email = req.Email
	contact.Relation = req.Relation
	if req.Priority != nil {
		contact.Priority = *req.Priority
	}

	if err := s.contacts.Update(ctx, contact); err != nil {
		return nil, err
	}

	return contact, nil
}

func (s *ContactService) Remove(ctx context.Context, userID, contactID string) error {
	return s.contacts.Delete(ctx, contactID, userID)
}

// SendVerification texts a short-lived code to the contact's phone so they
// can confirm they agreed to be an emergency contact.
func (s *ContactService) SendVerification(ctx context.Context, userID, contactID string) error {
	contact, err := s.contacts.GetByID(ctx, contactID, userID)
	if err != nil {
		return err
	}

	code, err := totp.GenerateCodeCustom(contact.OTPSecret, time.Now(), verifyOpts)
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	content := notification.Content{
		Body: fmt.Sprintf("Your Are You Okay verification code is %s. Someone listed you as their emergency contact.", code),
	}
	if _, err := s.sms.Send(ctx, contact.Phone, content); err != nil {
		return fmt.Errorf("failed to send verification SMS: %w", err)
	}

	s.log.Info("Verification code sent to contact %s", contactID)
	return nil
}

// Verify checks the code the contact received and marks them verified.
func (s *ContactService) Verify(ctx context.Context, userID, contactID, code string) error {
	contact, err := s.contacts.GetByID(ctx, contactID, userID)
	if err != nil {
		return err
	}

	valid, err := totp.ValidateCustom(code, contact.OTPSecret, time.Now(), verifyOpts)
	if err != nil || !valid {
		return ErrInvalidOTP
	}

	return s.contacts.SetVerified(ctx, contactID, userID)
}
