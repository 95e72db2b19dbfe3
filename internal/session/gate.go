package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-lifecycle/internal/config"
	"github.com/spec-kit/account-lifecycle/internal/domain"
	"github.com/spec-kit/account-lifecycle/internal/lifecycle"
	"github.com/spec-kit/account-lifecycle/internal/profilestore"
	apperrors "github.com/spec-kit/account-lifecycle/pkg/util/errorutil"
)

// Update is what the gate emits to the hosting screen after each reconciled
// event: the navigation decision plus everything the screen renders.
type Update struct {
	Decision           lifecycle.Decision
	Profile            *domain.Profile
	DisplayState       string
	Completion         int
	Countdown          string
	EligibleToActivate bool
}

// Gate wires the profile push feed, the hold countdown and the
// reconciliation engine for one account. A single goroutine owns all state;
// ticks, pushes and activate requests are serialized through its event loop,
// and after Close every late event is a no-op.
type Gate struct {
	accountID string
	store     profilestore.Store
	engine    *lifecycle.Engine
	timer     *lifecycle.HoldTimer
	logger    *zap.Logger

	tickInterval time.Duration
	settleDelay  time.Duration
	now          func() time.Time

	updates  chan Update
	activate chan chan error
	done     chan struct{}
}

// NewGate constructs a gate for one account. Run must be called to start it.
func NewGate(accountID string, store profilestore.Store, cfg config.LifecycleConfig, logger *zap.Logger) *Gate {
	return &Gate{
		accountID:    accountID,
		store:        store,
		engine:       lifecycle.NewEngine(),
		timer:        lifecycle.NewHoldTimer(),
		logger:       logger,
		tickInterval: cfg.TickInterval(),
		settleDelay:  cfg.SettleDelay(),
		now:          time.Now,
		updates:      make(chan Update, 8),
		activate:     make(chan chan error),
		done:         make(chan struct{}),
	}
}

// Updates returns the stream of reconciled screen updates. The channel
// closes when the gate shuts down.
func (g *Gate) Updates() <-chan Update {
	return g.updates
}

// RequestActivate asks the event loop to perform the self-service
// activation. The guard runs against local state before any store I/O.
func (g *Gate) RequestActivate(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case g.activate <- reply:
	case <-g.done:
		return apperrors.NewConflict("session closed", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the gate until ctx is cancelled. It performs the initial fetch,
// subscribes to the push feed, and then loops over pushes, ticks and
// activate requests. The countdown keeps ticking while store I/O is in
// flight because updates are applied from the loop, never awaited inline.
func (g *Gate) Run(ctx context.Context) error {
	defer close(g.done)
	defer close(g.updates)

	sub, err := g.store.Subscribe(ctx, g.accountID)
	if err != nil {
		return apperrors.NewFetchFailed(err)
	}
	defer sub.Cancel()

	profile, err := g.store.Fetch(ctx, g.accountID)
	if err != nil {
		if errors.Is(err, profilestore.ErrNotFound) {
			return apperrors.NewProfileMissing(g.accountID)
		}
		return apperrors.NewFetchFailed(err)
	}
	outcome, err := g.engine.Load(profile)
	if err != nil {
		// An inconsistent record is discarded, not rendered.
		g.logger.Error("initial profile failed validation",
			zap.String("account_id", g.accountID), zap.Error(err))
		return apperrors.NewInvariantViolation(g.accountID, err)
	}
	g.applyOutcome(outcome)

	ticker := time.NewTicker(g.tickInterval)
	defer ticker.Stop()

	// Channels owned by an in-flight activate write and its settle delay.
	var activateDone chan activateResult
	var settle <-chan time.Time
	var pendingReply chan error

	for {
		select {
		case <-ctx.Done():
			return nil

		case pushed, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			outcome, err := g.engine.ApplyPush(pushed)
			if err != nil {
				g.logger.Warn("discarding inconsistent pushed record",
					zap.String("account_id", g.accountID), zap.Error(err))
				continue
			}
			if outcome.Decision == lifecycle.DecisionIgnore {
				continue
			}
			// Any applied push supersedes a settle delay still pending
			// from an activate; the fresher record decides navigation.
			settle = nil
			g.applyOutcome(outcome)

		case <-ticker.C:
			// Each tick refreshes the rendered countdown. Once
			// eligibility latches at zero the ticks go quiet.
			if !g.timer.Running() || g.timer.EligibleToActivate() {
				continue
			}
			g.timer.Tick(g.tickInterval)
			g.emit(lifecycle.DecisionRedirectHold)

		case reply := <-g.activate:
			if activateDone != nil {
				reply <- apperrors.NewConflict("activation already in progress", nil)
				continue
			}
			if err := g.engine.CanActivate(g.timer.EligibleToActivate()); err != nil {
				reply <- apperrors.NewConflict(err.Error(), nil)
				continue
			}
			pendingReply = reply
			activateDone = make(chan activateResult, 1)
			go g.runActivate(ctx, activateDone)

		case result := <-activateDone:
			activateDone = nil
			if result.err != nil {
				// Local state unchanged; the user may retry.
				pendingReply <- apperrors.NewUpdateFailed(result.err)
				pendingReply = nil
				continue
			}
			g.engine.ApplyActivated(g.now())
			g.timer.Stop()
			pendingReply <- nil
			pendingReply = nil
			// Redirect only after the settle delay so an in-flight
			// contradicting push (e.g. an operator suspend) wins.
			settle = time.After(g.settleDelay)

		case <-settle:
			settle = nil
			g.emit(lifecycle.DecisionRedirectMain)
		}
	}
}

type activateResult struct {
	err error
}

func (g *Gate) runActivate(ctx context.Context, done chan activateResult) {
	active := domain.ActivityStatusActive
	audit := lifecycle.ActivationAuditReason(g.now())
	_, err := g.store.Update(ctx, g.accountID, profilestore.PartialUpdate{
		ActivityStatus: &active,
		StatusReason:   &audit,
		ClearHold:      true,
	})
	done <- activateResult{err: err}
}

func (g *Gate) applyOutcome(outcome lifecycle.Outcome) {
	if outcome.RestartTimer && outcome.Profile != nil {
		g.timer.Reset(outcome.Profile, g.now())
	}
	if outcome.Profile != nil && !outcome.Profile.IsOnHold() {
		g.timer.Stop()
	}
	g.emit(outcome.Decision)
}

func (g *Gate) emit(decision lifecycle.Decision) {
	profile := g.engine.Current()
	update := Update{
		Decision:           decision,
		Profile:            profile,
		DisplayState:       profile.DisplayState(),
		Completion:         profile.CompletionPercentage(),
		Countdown:          g.timer.Countdown(),
		EligibleToActivate: g.timer.EligibleToActivate(),
	}
	select {
	case g.updates <- update:
	default:
		g.logger.Warn("screen lagging, dropping update",
			zap.String("account_id", g.accountID),
			zap.String("decision", string(decision)))
	}
}
