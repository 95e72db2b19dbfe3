package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-lifecycle/internal/domain"
)

func profileAt(approval domain.ApprovalStatus, activity domain.ActivityStatus, lastUpdated time.Time) *domain.Profile {
	return &domain.Profile{
		AccountID:      "acc-1",
		ApprovalStatus: approval,
		ActivityStatus: activity,
		LastUpdated:    lastUpdated,
	}
}

func TestEngineDecisionTable(t *testing.T) {
	now := time.Now()
	holdStart := now.Add(-time.Hour)
	holdEnd := now.Add(47 * time.Hour)

	cases := []struct {
		name         string
		profile      *domain.Profile
		want         Decision
		restartTimer bool
	}{
		{"pending stays", profileAt(domain.ApprovalStatusPending, domain.ActivityStatusActive, now), DecisionStayPending, false},
		{"approved active goes to main", profileAt(domain.ApprovalStatusApproved, domain.ActivityStatusActive, now), DecisionRedirectMain, false},
		{"rejected goes to rejection screen", profileAt(domain.ApprovalStatusRejected, domain.ActivityStatusActive, now), DecisionRedirectRejected, false},
		{"suspended goes to suspension screen", profileAt(domain.ApprovalStatusApproved, domain.ActivityStatusSuspend, now), DecisionRedirectSuspended, false},
		{"hold goes to hold screen and restarts timer", onHold(holdStart, holdEnd), DecisionRedirectHold, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine()
			outcome, err := engine.Load(tc.profile)
			require.NoError(t, err)
			assert.Equal(t, tc.want, outcome.Decision)
			assert.Equal(t, tc.restartTimer, outcome.RestartTimer)
			assert.Equal(t, tc.profile, engine.Current())
		})
	}
}

func TestEngineLoadRejectsInvalidRecord(t *testing.T) {
	engine := NewEngine()
	bad := profileAt(domain.ApprovalStatusPending, domain.ActivityStatusSuspend, time.Now())

	outcome, err := engine.Load(bad)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.Equal(t, DecisionIgnore, outcome.Decision)
	assert.Nil(t, engine.Current(), "invalid record must not become local state")
}

func TestEnginePendingThenApproved(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine()
	t0 := time.Now()

	outcome, err := engine.Load(profileAt(domain.ApprovalStatusPending, domain.ActivityStatusActive, t0))
	assert.NoError(err)
	assert.Equal(DecisionStayPending, outcome.Decision)

	outcome, err = engine.ApplyPush(profileAt(domain.ApprovalStatusApproved, domain.ActivityStatusActive, t0.Add(time.Minute)))
	assert.NoError(err)
	assert.Equal(DecisionRedirectMain, outcome.Decision)
}

func TestEngineIgnoresStaleEvents(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine()
	t0 := time.Now()

	// e1 with last_updated=5 arrives before e2 with last_updated=3.
	e1 := profileAt(domain.ApprovalStatusApproved, domain.ActivityStatusActive, t0.Add(5*time.Second))
	e2 := profileAt(domain.ApprovalStatusApproved, domain.ActivityStatusSuspend, t0.Add(3*time.Second))

	_, err := engine.Load(e1)
	assert.NoError(err)

	outcome, err := engine.ApplyPush(e2)
	assert.NoError(err)
	assert.Equal(DecisionIgnore, outcome.Decision)
	assert.Equal(e1, engine.Current(), "older event must not downgrade state")
}

func TestEngineDuplicateDeliveryIsNoOp(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine()

	start := time.Now().Add(-time.Hour)
	end := start.Add(48 * time.Hour)
	held := onHold(start, end)

	outcome, err := engine.Load(held)
	assert.NoError(err)
	assert.Equal(DecisionRedirectHold, outcome.Decision)
	assert.True(outcome.RestartTimer)

	// Re-delivery with the same last_updated: no redirect, no timer restart.
	duplicate := *held
	outcome, err = engine.ApplyPush(&duplicate)
	assert.NoError(err)
	assert.Equal(DecisionIgnore, outcome.Decision)
	assert.False(outcome.RestartTimer)

	// A genuine refresh restarts the countdown basis.
	refreshed := *held
	refreshed.LastUpdated = held.LastUpdated.Add(time.Minute)
	newEnd := end.Add(24 * time.Hour)
	refreshed.HoldEnd = &newEnd
	days := 3
	refreshed.HoldDurationDays = &days
	outcome, err = engine.ApplyPush(&refreshed)
	assert.NoError(err)
	assert.Equal(DecisionRedirectHold, outcome.Decision)
	assert.True(outcome.RestartTimer)
}

func TestEngineSuspendOverridesHold(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine()

	start := time.Now().Add(-time.Hour)
	held := onHold(start, start.Add(48*time.Hour))
	_, err := engine.Load(held)
	assert.NoError(err)

	suspended := profileAt(domain.ApprovalStatusApproved, domain.ActivityStatusSuspend, held.LastUpdated.Add(time.Second))
	outcome, err := engine.ApplyPush(suspended)
	assert.NoError(err)
	assert.Equal(DecisionRedirectSuspended, outcome.Decision)
	assert.False(outcome.RestartTimer)
}

func TestEngineCanActivateGuard(t *testing.T) {
	assert := assert.New(t)

	engine := NewEngine()
	assert.ErrorIs(engine.CanActivate(true), ErrNoProfile)

	_, err := engine.Load(profileAt(domain.ApprovalStatusApproved, domain.ActivityStatusActive, time.Now()))
	assert.NoError(err)
	assert.ErrorIs(engine.CanActivate(true), ErrNotOnHold)

	start := time.Now().Add(-49 * time.Hour)
	_, err = engine.ApplyPush(onHold(start, start.Add(48*time.Hour)))
	assert.NoError(err)

	// The guard runs locally; an ineligible timer blocks before any I/O.
	assert.ErrorIs(engine.CanActivate(false), ErrHoldNotElapsed)
	assert.NoError(engine.CanActivate(true))
}

func TestEngineApplyActivated(t *testing.T) {
	assert := assert.New(t)
	engine := NewEngine()

	start := time.Now().Add(-72 * time.Hour)
	_, err := engine.Load(onHold(start, start.Add(48*time.Hour)))
	assert.NoError(err)

	now := time.Now()
	outcome := engine.ApplyActivated(now)
	assert.Equal(DecisionRedirectMain, outcome.Decision)

	current := engine.Current()
	assert.Equal(domain.ActivityStatusActive, current.ActivityStatus)
	assert.Nil(current.HoldStart)
	assert.Nil(current.HoldEnd)
	assert.Nil(current.HoldDurationDays)
	assert.Equal(now, current.LastUpdated)
	if assert.NotNil(current.StatusReason) {
		assert.Contains(*current.StatusReason, "self-service activation")
	}
	assert.NoError(current.Validate())
}
