package events

import (
	"time"

	"github.com/spec-kit/account-lifecycle/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProfileRegistered       EventType = "profile_registered"
	EventProfileReviewed         EventType = "profile_reviewed"
	EventProfileHoldStarted      EventType = "profile_hold_started"
	EventProfileActivated        EventType = "profile_activated"
	EventProfileSuspended        EventType = "profile_suspended"
	EventProfileSuspensionLifted EventType = "profile_suspension_lifted"
)

// Actor encapsulates who triggered an event: the account itself or an
// operator acting on it.
type Actor struct {
	Role       domain.AccountRole `json:"role"`
	AccountID  *string            `json:"account_id,omitempty"`
	OperatorID *string            `json:"operator_id,omitempty"`
}

// Event represents a lifecycle event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ProfileReviewedPayload payload.
type ProfileReviewedPayload struct {
	Outcome    domain.ApprovalStatus `json:"outcome"`
	Reason     *string               `json:"reason,omitempty"`
	EmployeeID *string               `json:"employee_id,omitempty"`
}

// ProfileHoldStartedPayload payload.
type ProfileHoldStartedPayload struct {
	DurationDays int       `json:"duration_days"`
	HoldStart    time.Time `json:"hold_start"`
	HoldEnd      time.Time `json:"hold_end"`
	Reason       *string   `json:"reason,omitempty"`
}

// ProfileActivatedPayload payload.
type ProfileActivatedPayload struct {
	SelfService bool   `json:"self_service"`
	AuditReason string `json:"audit_reason"`
}

// ProfileSuspendedPayload payload.
type ProfileSuspendedPayload struct {
	Reason *string `json:"reason,omitempty"`
}
