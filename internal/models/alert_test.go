package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateCreated, StateNotifying))
	assert.True(t, CanTransition(StateNotifying, StateNotified))
	assert.True(t, CanTransition(StateNotified, StateResolved))
	assert.True(t, CanTransition(StateNotified, StateEscalated))

	// No skipping forward, no moving backward, no leaving terminal states.
	assert.False(t, CanTransition(StateCreated, StateNotified))
	assert.False(t, CanTransition(StateNotified, StateCreated))
	assert.False(t, CanTransition(StateResolved, StateNotified))
	assert.False(t, CanTransition(StateEscalated, StateResolved))
}

func TestCanAdvanceStatus(t *testing.T) {
	assert.True(t, CanAdvanceStatus(ChannelSMS, SMSPending, SMSSent))
	assert.True(t, CanAdvanceStatus(ChannelSMS, SMSSent, SMSDelivered))
	assert.True(t, CanAdvanceStatus(ChannelSMS, SMSPending, SMSFailed))
	assert.True(t, CanAdvanceStatus(ChannelCall, CallInitiated, CallNoAnswer))
	assert.True(t, CanAdvanceStatus(ChannelEmail, EmailSent, EmailOpened))

	// A channel never regresses from a terminal state.
	assert.False(t, CanAdvanceStatus(ChannelSMS, SMSFailed, SMSSent))
	assert.False(t, CanAdvanceStatus(ChannelSMS, SMSDelivered, SMSPending))
	assert.False(t, CanAdvanceStatus(ChannelCall, CallAnswered, CallInitiated))
	assert.False(t, CanAdvanceStatus(ChannelPush, PushFailed, PushDelivered))

	// Sideways moves between same-rank terminals are not transitions.
	assert.False(t, CanAdvanceStatus(ChannelSMS, SMSFailed, SMSDelivered))

	assert.False(t, CanAdvanceStatus(Channel("pager"), "pending", "sent"))
}

func TestNewContactDelivery(t *testing.T) {
	c := &EmergencyContact{ID: "c1", Name: "Rahim", Phone: "+8801711111111", Email: "rahim@example.com"}
	d := NewContactDelivery(c)

	assert.Equal(t, "c1", d.ContactID)
	assert.Equal(t, "Rahim", d.Name)
	assert.Equal(t, SMSPending, d.SMSStatus)
	assert.Equal(t, CallPending, d.CallStatus)
	assert.Equal(t, EmailPending, d.EmailStatus)
	assert.Equal(t, PushPending, d.PushStatus)
}
