package models

import (
	"time"

	"github.com/noyon-ahamed/are-you-okay/internal/geo"
)

// Alert types.
const (
	AlertMissedCheckIn     = "missed_checkin"
	AlertManualSOS         = "manual_sos"
	AlertEarthquake        = "earthquake"
	AlertLocationEmergency = "location_emergency"
)

// Trigger origins.
const (
	TriggeredBySystem = "system"
	TriggeredByUser   = "user"
	TriggeredByAuto   = "auto"
)

// Alert priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// AlertState is the lifecycle state of an alert.
type AlertState string

const (
	StateCreated   AlertState = "CREATED"
	StateNotifying AlertState = "NOTIFYING"
	StateNotified  AlertState = "NOTIFIED"
	StateResolved  AlertState = "RESOLVED"
	StateEscalated AlertState = "ESCALATED"
)

// stateTransitions defines the only legal forward moves:
// CREATED -> NOTIFYING -> NOTIFIED -> (RESOLVED | ESCALATED).
var stateTransitions = map[AlertState][]AlertState{
	StateCreated:   {StateNotifying},
	StateNotifying: {StateNotified},
	StateNotified:  {StateResolved, StateEscalated},
}

// CanTransition reports whether an alert may move from one state to another.
func CanTransition(from, to AlertState) bool {
	for _, next := range stateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Resolution actors.
const (
	ResolvedByUser    = "user"
	ResolvedByContact = "contact"
	ResolvedByAuto    = "auto"
)

// Delivery channels.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelCall  Channel = "call"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// Per-channel delivery statuses. "pending" is the initial state everywhere;
// all other values are terminal for that channel within a fan-out pass.
const (
	SMSPending   = "pending"
	SMSSent      = "sent"
	SMSFailed    = "failed"
	SMSDelivered = "delivered"

	CallPending   = "pending"
	CallInitiated = "initiated"
	CallAnswered  = "answered"
	CallFailed    = "failed"
	CallNoAnswer  = "no_answer"

	EmailPending = "pending"
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailOpened  = "opened"

	PushPending   = "pending"
	PushSent      = "sent"
	PushFailed    = "failed"
	PushDelivered = "delivered"
)

// statusRank orders each channel's statuses. A status may only advance to a
// strictly higher rank; "failed" and the final delivery confirmations are
// terminal and never regress.
var statusRank = map[Channel]map[string]int{
	ChannelSMS:   {SMSPending: 0, SMSSent: 1, SMSDelivered: 2, SMSFailed: 2},
	ChannelCall:  {CallPending: 0, CallInitiated: 1, CallAnswered: 2, CallNoAnswer: 2, CallFailed: 2},
	ChannelEmail: {EmailPending: 0, EmailSent: 1, EmailOpened: 2, EmailFailed: 2},
	ChannelPush:  {PushPending: 0, PushSent: 1, PushDelivered: 2, PushFailed: 2},
}

// CanAdvanceStatus reports whether a channel status may move from one value
// to another. Statuses transition monotonically forward.
func CanAdvanceStatus(ch Channel, from, to string) bool {
	ranks, ok := statusRank[ch]
	if !ok {
		return false
	}
	fromRank, okFrom := ranks[from]
	toRank, okTo := ranks[to]
	return okFrom && okTo && toRank > fromRank
}

// ContactDelivery is the per-contact delivery record embedded in an alert.
// Name, phone and email are snapshotted at alert time so that later contact
// edits do not rewrite history.
type ContactDelivery struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`

	SMSStatus    string     `json:"sms_status"`
	SMSSentAt    *time.Time `json:"sms_sent_at,omitempty"`
	SMSMessageID string     `json:"sms_message_id,omitempty"`

	CallStatus      string     `json:"call_status"`
	CallInitiatedAt *time.Time `json:"call_initiated_at,omitempty"`
	CallSID         string     `json:"call_sid,omitempty"`

	EmailStatus string     `json:"email_status"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`

	PushStatus string     `json:"push_status"`
	PushSentAt *time.Time `json:"push_sent_at,omitempty"`
}

// NewContactDelivery snapshots a contact with every channel pending.
func NewContactDelivery(c *EmergencyContact) ContactDelivery {
	return ContactDelivery{
		ContactID:   c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		Email:       c.Email,
		SMSStatus:   SMSPending,
		CallStatus:  CallPending,
		EmailStatus: EmailPending,
		PushStatus:  PushPending,
	}
}

// Alert is one persisted incident with its delivery outcomes.
type Alert struct {
	ID            string     `json:"id" db:"id"`
	UserID        string     `json:"user_id" db:"user_id"`
	AlertType     string     `json:"alert_type" db:"alert_type"`
	TriggeredAt   time.Time  `json:"triggered_at" db:"triggered_at"`
	TriggeredBy   string     `json:"triggered_by" db:"triggered_by"`
	Location      *geo.Point `json:"location" db:"-"`
	Address       string     `json:"address,omitempty" db:"address"`
	Message       string     `json:"message" db:"message"`
	CustomMessage string     `json:"custom_message,omitempty" db:"custom_message"`

	ContactsNotified []ContactDelivery `json:"contacts_notified" db:"-"`

	PoliceNotified      bool       `json:"police_notified" db:"police_notified"`
	PoliceNotifiedAt    *time.Time `json:"police_notified_at,omitempty" db:"police_notified_at"`
	AmbulanceNotified   bool       `json:"ambulance_notified" db:"ambulance_notified"`
	AmbulanceNotifiedAt *time.Time `json:"ambulance_notified_at,omitempty" db:"ambulance_notified_at"`

	Resolved       bool       `json:"resolved" db:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy     string     `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolutionNote string     `json:"resolution_note,omitempty" db:"resolution_note"`

	Priority  string     `json:"priority" db:"priority"`
	State     AlertState `json:"state" db:"state"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
