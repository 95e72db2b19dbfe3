package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-lifecycle/internal/config"
	"github.com/spec-kit/account-lifecycle/internal/domain"
	"github.com/spec-kit/account-lifecycle/internal/events"
	"github.com/spec-kit/account-lifecycle/internal/profilestore"
	apperrors "github.com/spec-kit/account-lifecycle/pkg/util/errorutil"
)

// memoryStore implements profilestore.Store against a map, mirroring the
// merge semantics of the Postgres backing.
type memoryStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	clock    time.Time
	failNext error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		profiles: make(map[string]*domain.Profile),
		clock:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memoryStore) Create(ctx context.Context, profile *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile.LastUpdated = m.tick()
	profile.CreatedAt = profile.LastUpdated
	copied := *profile
	m.profiles[profile.AccountID] = &copied
	return nil
}

func (m *memoryStore) Fetch(ctx context.Context, accountID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[accountID]
	if !ok {
		return nil, profilestore.ErrNotFound
	}
	copied := *profile
	return &copied, nil
}

func (m *memoryStore) Update(ctx context.Context, accountID string, patch profilestore.PartialUpdate) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}
	current, ok := m.profiles[accountID]
	if !ok {
		return nil, profilestore.ErrNotFound
	}
	merged := *current
	if patch.ApprovalStatus != nil {
		merged.ApprovalStatus = *patch.ApprovalStatus
	}
	if patch.ActivityStatus != nil {
		merged.ActivityStatus = *patch.ActivityStatus
	}
	if patch.StatusReason != nil {
		merged.StatusReason = patch.StatusReason
	}
	if patch.ClearHold {
		merged.HoldDurationDays = nil
		merged.HoldStart = nil
		merged.HoldEnd = nil
	}
	if patch.SetHold != nil {
		days := patch.SetHold.DurationDays
		start := patch.SetHold.Start
		end := patch.SetHold.End
		merged.HoldDurationDays = &days
		merged.HoldStart = &start
		merged.HoldEnd = &end
	}
	if patch.EmployeeID != nil {
		merged.EmployeeID = patch.EmployeeID
	}
	if patch.JoiningDate != nil {
		merged.JoiningDate = patch.JoiningDate
	}
	merged.LastUpdated = m.tick()
	m.profiles[accountID] = &merged
	copied := merged
	return &copied, nil
}

func (m *memoryStore) Subscribe(ctx context.Context, accountID string) (*profilestore.Subscription, error) {
	return profilestore.NewSubscription(make(chan *domain.Profile), nil), nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (r *recordingDispatcher) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestService(store profilestore.Store, dispatcher events.Dispatcher) *LifecycleService {
	svc := NewLifecycleService(config.LifecycleConfig{DefaultHoldDays: 2}, LifecycleDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc
}

func TestLifecycleRegisterAndReview(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	dispatcher := &recordingDispatcher{}
	svc := newTestService(store, dispatcher)

	profile, err := svc.RegisterProfile(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, profile.IsPending())
	assert.Equal(t, 50, profile.CompletionPercentage())

	employeeID := "EMP-7"
	reviewed, err := svc.Review(ctx, "op-1", "acc-1", ReviewInput{Approve: true, EmployeeID: &employeeID})
	require.NoError(t, err)
	assert.True(t, reviewed.IsApproved())
	assert.True(t, reviewed.IsActive())
	assert.Equal(t, &employeeID, reviewed.EmployeeID)
	assert.NotNil(t, reviewed.JoiningDate)

	// Review is one-time: a second verdict conflicts.
	_, err = svc.Review(ctx, "op-1", "acc-1", ReviewInput{Approve: false})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)

	assert.Equal(t, []events.EventType{events.EventProfileRegistered, events.EventProfileReviewed}, dispatcher.types())
}

func TestLifecycleRejectedAccountStaysRejected(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store, &recordingDispatcher{})

	_, err := svc.RegisterProfile(ctx, "acc-1")
	require.NoError(t, err)

	reason := "incomplete documents"
	rejected, err := svc.Review(ctx, "op-1", "acc-1", ReviewInput{Approve: false, Reason: &reason})
	require.NoError(t, err)
	assert.True(t, rejected.IsRejected())
	assert.Equal(t, &reason, rejected.StatusReason)
	assert.Equal(t, 25, rejected.CompletionPercentage())

	// Unapproved accounts cannot be held or suspended.
	_, err = svc.PlaceOnHold(ctx, "op-1", "acc-1", 2, nil)
	assert.Error(t, err)
	_, err = svc.Suspend(ctx, "op-1", "acc-1", nil)
	assert.Error(t, err)
}

func TestLifecycleHoldAndActivate(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	dispatcher := &recordingDispatcher{}
	svc := newTestService(store, dispatcher)
	svc.now = func() time.Time { return store.clock }

	_, err := svc.RegisterProfile(ctx, "acc-1")
	require.NoError(t, err)
	_, err = svc.Review(ctx, "op-1", "acc-1", ReviewInput{Approve: true})
	require.NoError(t, err)

	held, err := svc.PlaceOnHold(ctx, "op-1", "acc-1", 2, nil)
	require.NoError(t, err)
	assert.True(t, held.IsOnHold())
	require.NoError(t, held.Validate())
	require.NotNil(t, held.HoldEnd)
	assert.Equal(t, held.HoldStart.Add(48*time.Hour), *held.HoldEnd)

	// Too early: the hold window has not elapsed.
	_, err = svc.Activate(ctx, "acc-1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)

	// One second past the hold end.
	svc.now = func() time.Time { return held.HoldEnd.Add(time.Second) }
	activated, err := svc.Activate(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, activated.IsActive())
	assert.Nil(t, activated.HoldStart)
	assert.Nil(t, activated.HoldEnd)
	assert.Nil(t, activated.HoldDurationDays)
	require.NotNil(t, activated.StatusReason)
	assert.Contains(t, *activated.StatusReason, "self-service activation")
	require.NoError(t, activated.Validate())
}

func TestLifecycleDefaultHoldDuration(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store, &recordingDispatcher{})

	_, err := svc.RegisterProfile(ctx, "acc-1")
	require.NoError(t, err)
	_, err = svc.Review(ctx, "op-1", "acc-1", ReviewInput{Approve: true})
	require.NoError(t, err)

	held, err := svc.PlaceOnHold(ctx, "op-1", "acc-1", 0, nil)
	require.NoError(t, err)
	require.NotNil(t, held.HoldDurationDays)
	assert.Equal(t, 2, *held.HoldDurationDays)
}

func TestLifecycleSuspendAndLift(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store, &recordingDispatcher{})

	_, err := svc.RegisterProfile(ctx, "acc-1")
	require.NoError(t, err)
	_, err = svc.Review(ctx, "op-1", "acc-1", ReviewInput{Approve: true})
	require.NoError(t, err)

	reason := "fraud review"
	suspended, err := svc.Suspend(ctx, "op-1", "acc-1", &reason)
	require.NoError(t, err)
	assert.True(t, suspended.IsSuspended())

	// No self-service path out of suspension.
	_, err = svc.Activate(ctx, "acc-1")
	assert.Error(t, err)

	lifted, err := svc.LiftSuspension(ctx, "op-1", "acc-1", nil)
	require.NoError(t, err)
	assert.True(t, lifted.IsActive())
}

func TestLifecycleSuspendClearsHoldWindow(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store, &recordingDispatcher{})

	_, err := svc.RegisterProfile(ctx, "acc-1")
	require.NoError(t, err)
	_, err = svc.Review(ctx, "op-1", "acc-1", ReviewInput{Approve: true})
	require.NoError(t, err)
	_, err = svc.PlaceOnHold(ctx, "op-1", "acc-1", 2, nil)
	require.NoError(t, err)

	suspended, err := svc.Suspend(ctx, "op-1", "acc-1", nil)
	require.NoError(t, err)
	assert.True(t, suspended.IsSuspended())
	assert.Nil(t, suspended.HoldStart)
	assert.Nil(t, suspended.HoldEnd)
	require.NoError(t, suspended.Validate())
}

func TestLifecycleErrorMapping(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store, &recordingDispatcher{})

	_, err := svc.GetProfile(ctx, "ghost")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PROFILE_MISSING", domainErr.Code)

	_, err = svc.RegisterProfile(ctx, "acc-1")
	require.NoError(t, err)
	_, err = svc.Review(ctx, "op-1", "acc-1", ReviewInput{Approve: true})
	require.NoError(t, err)

	// A failing activate write surfaces as retryable and leaves state alone.
	held, err := svc.PlaceOnHold(ctx, "op-1", "acc-1", 1, nil)
	require.NoError(t, err)
	svc.now = func() time.Time { return held.HoldEnd.Add(time.Minute) }
	store.failNext = errors.New("connection reset")
	_, err = svc.Activate(ctx, "acc-1")
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UPDATE_FAILED", domainErr.Code)

	after, err := svc.GetProfile(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, after.IsOnHold(), "failed update must not change state")
}

func TestLifecycleInvariantViolationDiscarded(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store, &recordingDispatcher{})

	// Seed a corrupt record directly: pending but suspended.
	store.profiles["acc-1"] = &domain.Profile{
		AccountID:      "acc-1",
		ApprovalStatus: domain.ApprovalStatusPending,
		ActivityStatus: domain.ActivityStatusSuspend,
		LastUpdated:    store.tick(),
	}

	_, err := svc.GetProfile(ctx, "acc-1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVARIANT_VIOLATION", domainErr.Code)
}
