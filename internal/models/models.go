package models

import (
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
)

// Subscription plans. Voice calls and device push are reserved for premium users.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
	PlanFamily  = "family"
)

// User is the monitored person.
type User struct {
	ID                 string     `json:"id" db:"id"`
	Name               string     `json:"name" db:"name"`
	Email              string     `json:"email" db:"email"`
	PasswordHash       string     `json:"-" db:"password_hash"`
	Phone              string     `json:"phone" db:"phone"`
	Plan               string     `json:"plan" db:"plan"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	LastCheckIn        *time.Time `json:"last_check_in" db:"last_check_in"`
	CheckInStreak      int        `json:"check_in_streak" db:"check_in_streak"`
	MissedCheckInCount int        `json:"missed_check_in_count" db:"missed_check_in_count"`
	Location           *geo.Point `json:"location" db:"-"`
	PushToken          string     `json:"-" db:"push_token"`
	QuakeAlerts        bool       `json:"quake_alerts" db:"quake_alerts"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPremium reports whether the user is on a paid plan.
func (u *User) IsPremium() bool {
	return u.Plan == PlanPremium || u.Plan == PlanFamily
}

// EmergencyContact is a ranked contact of a user. Lower priority numbers are
// contacted first. The engine only reads contacts; users manage them.
type EmergencyContact struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email" db:"email"`
	Relation  string    `json:"relation" db:"relation"`
	Priority  int       `json:"priority" db:"priority"`
	Verified  bool      `json:"verified" db:"verified"`
	OTPSecret string    `json:"-" db:"otp_secret"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CheckIn is one daily "I'm okay" event.
type CheckIn struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Status      string    `json:"status" db:"status"`
	Note        string    `json:"note" db:"note"`
	Location    geo.Point `json:"location" db:"-"`
	CheckedInAt time.Time `json:"checked_in_at" db:"checked_in_at"`
}

// --- Request payloads ---

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CheckInRequest struct {
	Location *geo.Point `json:"location"`
	Status   string     `json:"status"`
	Note     string     `json:"note"`
}

type ContactRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Relation string `json:"relation"`
	Priority *int   `json:"priority"`
}

type SOSRequest struct {
	Location      *geo.Point `json:"location"`
	CustomMessage string     `json:"custom_message"`
}

type ResolveRequest struct {
	Note string `json:"note"`
}
