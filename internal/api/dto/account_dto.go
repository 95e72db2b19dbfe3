package dto

import "time"

// StatusResponse is the reconciled view of an account's lifecycle the status
// screen renders.
type StatusResponse struct {
	AccountID          string     `json:"account_id"`
	ApprovalStatus     string     `json:"approval_status"`
	ActivityStatus     string     `json:"activity_status"`
	DisplayState       string     `json:"display_state"`
	Decision           string     `json:"decision"`
	Completion         int        `json:"completion_percentage"`
	StatusReason       *string    `json:"status_reason,omitempty"`
	HoldEnd            *time.Time `json:"hold_end,omitempty"`
	Countdown          string     `json:"countdown"`
	EligibleToActivate bool       `json:"eligible_to_activate"`
	LastUpdated        time.Time  `json:"last_updated"`
}

// ReviewRequest is the operator's verdict on a pending account.
type ReviewRequest struct {
	Approve     bool       `json:"approve"`
	Reason      *string    `json:"reason,omitempty"`
	EmployeeID  *string    `json:"employee_id,omitempty"`
	JoiningDate *time.Time `json:"joining_date,omitempty"`
}

// HoldRequest places an approved account on a time-boxed hold.
type HoldRequest struct {
	DurationDays int     `json:"duration_days"`
	Reason       *string `json:"reason,omitempty"`
}

// SuspendRequest suspends an approved account indefinitely.
type SuspendRequest struct {
	Reason *string `json:"reason,omitempty"`
}
