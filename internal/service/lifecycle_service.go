package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/account-lifecycle/internal/config"
	"github.com/spec-kit/account-lifecycle/internal/domain"
	"github.com/spec-kit/account-lifecycle/internal/events"
	"github.com/spec-kit/account-lifecycle/internal/lifecycle"
	"github.com/spec-kit/account-lifecycle/internal/profilestore"
	apperrors "github.com/spec-kit/account-lifecycle/pkg/util/errorutil"
)

// LifecycleService coordinates the account lifecycle workflow: registration,
// review, hold, suspension and self-service activation. It is the only
// writer to the profile store besides migrations.
type LifecycleService struct {
	store           profilestore.Store
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	defaultHoldDays int
	now             func() time.Time
}

// LifecycleDependencies bundles collaborators for the service.
type LifecycleDependencies struct {
	Store      profilestore.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(cfg config.LifecycleConfig, deps LifecycleDependencies) *LifecycleService {
	days := cfg.DefaultHoldDays
	if days <= 0 {
		days = 2
	}
	return &LifecycleService{
		store:           deps.Store,
		dispatcher:      deps.Dispatcher,
		logger:          deps.Logger,
		defaultHoldDays: days,
		now:             time.Now,
	}
}

// RegisterProfile creates the pending-review profile for a new account.
func (s *LifecycleService) RegisterProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	profile := &domain.Profile{
		AccountID:      accountID,
		ApprovalStatus: domain.ApprovalStatusPending,
		ActivityStatus: domain.ActivityStatusActive,
	}
	if err := s.store.Create(ctx, profile); err != nil {
		return nil, apperrors.NewUpdateFailed(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventProfileRegistered,
		AccountID: accountID,
		Actor:     userActor(accountID),
	})
	return profile, nil
}

// GetProfile returns the validated profile record for an account. Records
// failing validation are discarded rather than repaired.
func (s *LifecycleService) GetProfile(ctx context.Context, accountID string) (*domain.Profile, error) {
	profile, err := s.store.Fetch(ctx, accountID)
	if err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			return nil, apperrors.NewProfileMissing(accountID)
		}
		return nil, apperrors.NewFetchFailed(err)
	}
	if err := profile.Validate(); err != nil {
		s.logger.Error("discarding inconsistent profile record",
			zap.String("account_id", accountID), zap.Error(err))
		return nil, apperrors.NewInvariantViolation(accountID, err)
	}
	return profile, nil
}

// ReviewInput carries the reviewer's verdict.
type ReviewInput struct {
	Approve     bool
	Reason      *string
	EmployeeID  *string
	JoiningDate *time.Time
}

// Review records the one-time review outcome for a pending account.
func (s *LifecycleService) Review(ctx context.Context, operatorID, accountID string, input ReviewInput) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !profile.IsPending() {
		return nil, apperrors.NewConflict("account already reviewed", map[string]any{
			"approval_status": profile.ApprovalStatus,
		})
	}

	outcome := domain.ApprovalStatusRejected
	patch := profilestore.PartialUpdate{StatusReason: input.Reason}
	if input.Approve {
		outcome = domain.ApprovalStatusApproved
		patch.EmployeeID = input.EmployeeID
		if input.JoiningDate != nil {
			patch.JoiningDate = input.JoiningDate
		} else {
			joined := s.now()
			patch.JoiningDate = &joined
		}
	}
	patch.ApprovalStatus = &outcome

	updated, err := s.store.Update(ctx, accountID, patch)
	if err != nil {
		return nil, apperrors.NewUpdateFailed(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventProfileReviewed,
		AccountID: accountID,
		Actor:     operatorActor(operatorID),
		Payload: events.ProfileReviewedPayload{
			Outcome:    outcome,
			Reason:     input.Reason,
			EmployeeID: input.EmployeeID,
		},
	})
	return updated, nil
}

// PlaceOnHold puts an approved account into a time-boxed hold. A non-positive
// duration falls back to the configured default.
func (s *LifecycleService) PlaceOnHold(ctx context.Context, operatorID, accountID string, days int, reason *string) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !profile.IsApproved() {
		return nil, apperrors.NewConflict("only approved accounts can be placed on hold", nil)
	}
	if days <= 0 {
		days = s.defaultHoldDays
	}

	start := s.now()
	end := start.Add(time.Duration(days) * 24 * time.Hour)
	hold := domain.ActivityStatusHold
	updated, err := s.store.Update(ctx, accountID, profilestore.PartialUpdate{
		ActivityStatus: &hold,
		StatusReason:   reason,
		SetHold: &profilestore.HoldWindow{
			DurationDays: days,
			Start:        start,
			End:          end,
		},
	})
	if err != nil {
		return nil, apperrors.NewUpdateFailed(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventProfileHoldStarted,
		AccountID: accountID,
		Actor:     operatorActor(operatorID),
		Payload: events.ProfileHoldStartedPayload{
			DurationDays: days,
			HoldStart:    start,
			HoldEnd:      end,
			Reason:       reason,
		},
	})
	return updated, nil
}

// Suspend places an approved account under indefinite suspension. Only an
// operator can lift it again.
func (s *LifecycleService) Suspend(ctx context.Context, operatorID, accountID string, reason *string) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !profile.IsApproved() {
		return nil, apperrors.NewConflict("only approved accounts can be suspended", nil)
	}

	suspend := domain.ActivityStatusSuspend
	updated, err := s.store.Update(ctx, accountID, profilestore.PartialUpdate{
		ActivityStatus: &suspend,
		StatusReason:   reason,
		ClearHold:      true,
	})
	if err != nil {
		return nil, apperrors.NewUpdateFailed(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventProfileSuspended,
		AccountID: accountID,
		Actor:     operatorActor(operatorID),
		Payload:   events.ProfileSuspendedPayload{Reason: reason},
	})
	return updated, nil
}

// LiftSuspension returns a suspended account to active.
func (s *LifecycleService) LiftSuspension(ctx context.Context, operatorID, accountID string, reason *string) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !profile.IsSuspended() {
		return nil, apperrors.NewConflict("account is not suspended", nil)
	}

	active := domain.ActivityStatusActive
	updated, err := s.store.Update(ctx, accountID, profilestore.PartialUpdate{
		ActivityStatus: &active,
		StatusReason:   reason,
		ClearHold:      true,
	})
	if err != nil {
		return nil, apperrors.NewUpdateFailed(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventProfileSuspensionLifted,
		AccountID: accountID,
		Actor:     operatorActor(operatorID),
	})
	return updated, nil
}

// Activate is the self-service hold lift. The server re-checks the hold
// window against its own clock before committing the write.
func (s *LifecycleService) Activate(ctx context.Context, accountID string) (*domain.Profile, error) {
	profile, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !profile.IsOnHold() {
		return nil, apperrors.NewConflict("account is not on hold", nil)
	}
	now := s.now()
	if profile.HoldEnd != nil && profile.HoldEnd.After(now) {
		return nil, apperrors.NewConflict("hold period has not elapsed", map[string]any{
			"hold_end": profile.HoldEnd,
		})
	}

	active := domain.ActivityStatusActive
	audit := lifecycle.ActivationAuditReason(now)
	updated, err := s.store.Update(ctx, accountID, profilestore.PartialUpdate{
		ActivityStatus: &active,
		StatusReason:   &audit,
		ClearHold:      true,
	})
	if err != nil {
		return nil, apperrors.NewUpdateFailed(err)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventProfileActivated,
		AccountID: accountID,
		Actor:     userActor(accountID),
		Payload: events.ProfileActivatedPayload{
			SelfService: true,
			AuditReason: audit,
		},
	})
	return updated, nil
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish lifecycle event",
			zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func userActor(accountID string) events.Actor {
	return events.Actor{Role: domain.AccountRoleUser, AccountID: &accountID}
}

func operatorActor(operatorID string) events.Actor {
	return events.Actor{Role: domain.AccountRoleOperator, OperatorID: &operatorID}
}
