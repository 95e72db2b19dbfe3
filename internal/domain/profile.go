package domain

import (
	"errors"
	"time"
)

// ApprovalStatus is the one-time review outcome for an account.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// ActivityStatus is the ongoing operational status, orthogonal to approval.
type ActivityStatus string

const (
	ActivityStatusActive  ActivityStatus = "ACTIVE"
	ActivityStatusHold    ActivityStatus = "HOLD"
	ActivityStatusSuspend ActivityStatus = "SUSPEND"
)

// ErrInvariantViolation marks a profile record whose status fields are
// mutually inconsistent. Callers must discard the record, never repair it.
var ErrInvariantViolation = errors.New("profile invariant violation")

// Profile is the per-account lifecycle record. ActivityStatus carries meaning
// only after approval; pending accounts keep the conventional ACTIVE value
// and consumers must disregard it.
type Profile struct {
	AccountID        string         `json:"account_id"`
	ApprovalStatus   ApprovalStatus `json:"approval_status"`
	ActivityStatus   ActivityStatus `json:"activity_status"`
	StatusReason     *string        `json:"status_reason,omitempty"`
	HoldDurationDays *int           `json:"hold_duration_days,omitempty"`
	HoldStart        *time.Time     `json:"hold_start,omitempty"`
	HoldEnd          *time.Time     `json:"hold_end,omitempty"`
	EmployeeID       *string        `json:"employee_id,omitempty"`
	JoiningDate      *time.Time     `json:"joining_date,omitempty"`
	LastUpdated      time.Time      `json:"last_updated"`
	CreatedAt        time.Time      `json:"created_at"`
}

// IsPending reports whether the account awaits review.
func (p *Profile) IsPending() bool {
	return p != nil && p.ApprovalStatus == ApprovalStatusPending
}

// IsApproved reports whether the account passed review.
func (p *Profile) IsApproved() bool {
	return p != nil && p.ApprovalStatus == ApprovalStatusApproved
}

// IsRejected reports whether the account failed review.
func (p *Profile) IsRejected() bool {
	return p != nil && p.ApprovalStatus == ApprovalStatusRejected
}

// IsOnHold reports whether an approved account is in a time-boxed hold.
func (p *Profile) IsOnHold() bool {
	return p.IsApproved() && p.ActivityStatus == ActivityStatusHold
}

// IsSuspended reports whether an approved account is indefinitely suspended.
func (p *Profile) IsSuspended() bool {
	return p.IsApproved() && p.ActivityStatus == ActivityStatusSuspend
}

// IsActive reports whether the account is approved and operational.
func (p *Profile) IsActive() bool {
	return p.IsApproved() && p.ActivityStatus == ActivityStatusActive
}

// DisplayState collapses the two axes into the single effective state a
// status screen renders: the activity axis once approved, otherwise the
// approval axis.
func (p *Profile) DisplayState() string {
	if p == nil {
		return ""
	}
	if p.IsApproved() {
		return string(p.ActivityStatus)
	}
	return string(p.ApprovalStatus)
}

// CompletionPercentage maps the effective state onto the onboarding progress
// figure shown to the user. A missing profile counts as zero progress.
func (p *Profile) CompletionPercentage() int {
	if p == nil {
		return 0
	}
	switch {
	case p.IsActive():
		return 100
	case p.IsOnHold(), p.IsSuspended():
		return 75
	case p.IsPending():
		return 50
	case p.IsRejected():
		return 25
	default:
		return 0
	}
}

// Validate checks the record's internal consistency. It returns
// ErrInvariantViolation for records that no screen should trust:
// unknown status values, hold fields out of pairing, or a hold/suspend
// placed on an account that was never approved.
func (p *Profile) Validate() error {
	if p == nil {
		return ErrInvariantViolation
	}
	switch p.ApprovalStatus {
	case ApprovalStatusPending, ApprovalStatusApproved, ApprovalStatusRejected:
	default:
		return ErrInvariantViolation
	}
	switch p.ActivityStatus {
	case ActivityStatusActive, ActivityStatusHold, ActivityStatusSuspend:
	default:
		return ErrInvariantViolation
	}

	// No screen handles an unapproved account on hold or suspend; reject
	// the combination instead of guessing a rendering for it.
	if !p.IsApproved() && (p.ActivityStatus == ActivityStatusHold || p.ActivityStatus == ActivityStatusSuspend) {
		return ErrInvariantViolation
	}

	if p.ActivityStatus == ActivityStatusHold {
		if p.HoldStart == nil || p.HoldEnd == nil {
			return ErrInvariantViolation
		}
		if !p.HoldEnd.After(*p.HoldStart) {
			return ErrInvariantViolation
		}
		if p.HoldDurationDays != nil && *p.HoldDurationDays < 0 {
			return ErrInvariantViolation
		}
	} else {
		if p.HoldStart != nil || p.HoldEnd != nil || p.HoldDurationDays != nil {
			return ErrInvariantViolation
		}
	}
	return nil
}
