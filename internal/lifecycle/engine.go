package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/account-lifecycle/internal/domain"
)

// Decision is the navigation outcome the engine hands back to the hosting
// screen after reconciling an incoming profile event.
type Decision string

const (
	// DecisionIgnore means the event was stale or a duplicate; displayed
	// state is unchanged and no navigation happens.
	DecisionIgnore Decision = "IGNORE"
	// DecisionStayPending keeps the pending-review screen, re-rendered
	// with the latest record.
	DecisionStayPending Decision = "STAY_PENDING"
	// DecisionRedirectMain sends the user into the main application.
	DecisionRedirectMain Decision = "REDIRECT_MAIN"
	// DecisionRedirectRejected sends the user to the rejection screen.
	DecisionRedirectRejected Decision = "REDIRECT_REJECTED"
	// DecisionRedirectSuspended sends the user to the suspension screen.
	DecisionRedirectSuspended Decision = "REDIRECT_SUSPENDED"
	// DecisionRedirectHold sends the user to (or keeps them on) the hold
	// countdown screen.
	DecisionRedirectHold Decision = "REDIRECT_HOLD"
)

// Outcome bundles the decision with the profile state it was derived from.
// RestartTimer is set when the hold countdown must be re-derived from the
// incoming record's hold end.
type Outcome struct {
	Decision     Decision
	Profile      *domain.Profile
	RestartTimer bool
}

var (
	// ErrNotOnHold rejects an activate attempt for a profile outside the
	// hold state.
	ErrNotOnHold = errors.New("account is not on hold")
	// ErrHoldNotElapsed rejects an activate attempt before the hold window
	// has fully elapsed. The guard runs locally, before any store I/O.
	ErrHoldNotElapsed = errors.New("hold period has not elapsed")
	// ErrNoProfile rejects operations that need a loaded profile.
	ErrNoProfile = errors.New("no profile loaded")
)

// Engine is the reconciliation state machine. It holds the locally-known
// profile for one account and folds incoming events (initial load, push
// update, user activation) into a new state plus a navigation decision.
//
// The engine performs no I/O. Stale and duplicate events are detected by
// last_updated and ignored; records that fail validation are rejected with
// domain.ErrInvariantViolation and leave the held state untouched.
type Engine struct {
	current *domain.Profile
}

// NewEngine returns an engine with no profile loaded.
func NewEngine() *Engine {
	return &Engine{}
}

// Current returns the locally-held profile, nil before the first load.
func (e *Engine) Current() *domain.Profile {
	return e.current
}

// Load folds the result of the initial profile fetch.
func (e *Engine) Load(p *domain.Profile) (Outcome, error) {
	if err := p.Validate(); err != nil {
		return Outcome{Decision: DecisionIgnore, Profile: e.current}, err
	}
	e.current = p
	decision, restart := decide(p)
	return Outcome{Decision: decision, Profile: p, RestartTimer: restart}, nil
}

// ApplyPush folds a server-originated replacement record. Events older than
// the held record are dropped; re-delivery of the same record is a pure
// no-op so the hold countdown basis is not disturbed.
func (e *Engine) ApplyPush(p *domain.Profile) (Outcome, error) {
	if p == nil {
		return Outcome{Decision: DecisionIgnore, Profile: e.current}, domain.ErrInvariantViolation
	}
	if e.current != nil && !p.LastUpdated.After(e.current.LastUpdated) {
		return Outcome{Decision: DecisionIgnore, Profile: e.current}, nil
	}
	if err := p.Validate(); err != nil {
		return Outcome{Decision: DecisionIgnore, Profile: e.current}, err
	}
	e.current = p
	decision, restart := decide(p)
	return Outcome{Decision: decision, Profile: p, RestartTimer: restart}, nil
}

// CanActivate enforces the self-service activation guard against local state
// only. It must pass before the store update is attempted.
func (e *Engine) CanActivate(timerEligible bool) error {
	if e.current == nil {
		return ErrNoProfile
	}
	if !e.current.IsOnHold() {
		return ErrNotOnHold
	}
	if !timerEligible {
		return ErrHoldNotElapsed
	}
	return nil
}

// ApplyActivated replaces local state after the store accepted the activate
// update, without waiting for the corresponding push event: the profile goes
// active, hold fields clear, and an audit reason records the self-service
// action.
func (e *Engine) ApplyActivated(now time.Time) Outcome {
	if e.current == nil {
		return Outcome{Decision: DecisionIgnore}
	}
	updated := *e.current
	updated.ActivityStatus = domain.ActivityStatusActive
	updated.HoldDurationDays = nil
	updated.HoldStart = nil
	updated.HoldEnd = nil
	reason := ActivationAuditReason(now)
	updated.StatusReason = &reason
	updated.LastUpdated = now
	e.current = &updated
	return Outcome{Decision: DecisionRedirectMain, Profile: e.current}
}

// ActivationAuditReason is the status reason written when an account lifts
// its own hold.
func ActivationAuditReason(now time.Time) string {
	return fmt.Sprintf("self-service activation at %s", now.UTC().Format(time.RFC3339))
}

// decide maps a valid profile onto the decision table. Every screen applies
// the same table, so a push received anywhere still lands on the right
// screen.
func decide(p *domain.Profile) (Decision, bool) {
	switch {
	case p.IsRejected():
		return DecisionRedirectRejected, false
	case p.IsSuspended():
		return DecisionRedirectSuspended, false
	case p.IsOnHold():
		return DecisionRedirectHold, true
	case p.IsActive():
		return DecisionRedirectMain, false
	default:
		return DecisionStayPending, false
	}
}
