package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/account-lifecycle/internal/api/dto"
	"github.com/spec-kit/account-lifecycle/internal/auth"
	"github.com/spec-kit/account-lifecycle/internal/config"
	"github.com/spec-kit/account-lifecycle/internal/lifecycle"
	"github.com/spec-kit/account-lifecycle/internal/observability"
	"github.com/spec-kit/account-lifecycle/internal/profilestore"
	"github.com/spec-kit/account-lifecycle/internal/service"
	"github.com/spec-kit/account-lifecycle/internal/session"
	apperrors "github.com/spec-kit/account-lifecycle/pkg/util/errorutil"
)

// AccountsHandler exposes the lifecycle status screen endpoints for the
// authenticated account.
type AccountsHandler struct {
	lifecycleService *service.LifecycleService
	store            profilestore.Store
	cfg              config.LifecycleConfig
	metrics          *observability.Metrics
	logger           *zap.Logger
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(lifecycleService *service.LifecycleService, store profilestore.Store, cfg config.LifecycleConfig, metrics *observability.Metrics, logger *zap.Logger) *AccountsHandler {
	return &AccountsHandler{
		lifecycleService: lifecycleService,
		store:            store,
		cfg:              cfg,
		metrics:          metrics,
		logger:           logger,
	}
}

// Status handles GET /accounts/me/status: a one-shot reconciliation of the
// stored profile into the payload the status screen renders.
func (h *AccountsHandler) Status(c *fiber.Ctx) error {
	accountID, ok := auth.CurrentAccountID(c)
	if !ok {
		return apperrors.NewUnauthorized("not signed in")
	}

	profile, err := h.lifecycleService.GetProfile(c.Context(), accountID)
	if err != nil {
		return err
	}

	engine := lifecycle.NewEngine()
	outcome, err := engine.Load(profile)
	if err != nil {
		return apperrors.NewInvariantViolation(accountID, err)
	}

	timer := lifecycle.NewHoldTimer()
	timer.Reset(profile, time.Now())

	h.metrics.RecordDecision(string(outcome.Decision))

	return c.JSON(fiber.Map{"data": statusResponse(outcome, timer)})
}

// Activate handles POST /accounts/me/activate: the self-service hold lift.
// The service re-checks the hold window server-side before writing.
func (h *AccountsHandler) Activate(c *fiber.Ctx) error {
	accountID, ok := auth.CurrentAccountID(c)
	if !ok {
		return apperrors.NewUnauthorized("not signed in")
	}

	profile, err := h.lifecycleService.Activate(c.Context(), accountID)
	if err != nil {
		return err
	}

	engine := lifecycle.NewEngine()
	outcome, err := engine.Load(profile)
	if err != nil {
		return apperrors.NewInvariantViolation(accountID, err)
	}
	h.metrics.RecordDecision(string(outcome.Decision))

	return c.JSON(fiber.Map{"data": statusResponse(outcome, lifecycle.NewHoldTimer())})
}

// Watch handles GET /accounts/me/watch: a streaming session that mirrors the
// status screen. Each line is one JSON-encoded reconciled update; the stream
// ends when the client disconnects.
func (h *AccountsHandler) Watch(c *fiber.Ctx) error {
	accountID, ok := auth.CurrentAccountID(c)
	if !ok {
		return apperrors.NewUnauthorized("not signed in")
	}

	gate := session.NewGate(accountID, h.store, h.cfg, h.logger)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := gate.Run(ctx); err != nil {
			h.logger.Warn("session gate stopped",
				zap.String("account_id", accountID), zap.Error(err))
		}
	}()

	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for update := range gate.Updates() {
			payload, err := json.Marshal(watchUpdate(update))
			if err != nil {
				return
			}
			if _, err := w.Write(append(payload, '\n')); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
			h.metrics.RecordDecision(string(update.Decision))
		}
	}))
	return nil
}

func statusResponse(outcome lifecycle.Outcome, timer *lifecycle.HoldTimer) dto.StatusResponse {
	p := outcome.Profile
	return dto.StatusResponse{
		AccountID:          p.AccountID,
		ApprovalStatus:     string(p.ApprovalStatus),
		ActivityStatus:     string(p.ActivityStatus),
		DisplayState:       p.DisplayState(),
		Decision:           string(outcome.Decision),
		Completion:         p.CompletionPercentage(),
		StatusReason:       p.StatusReason,
		HoldEnd:            p.HoldEnd,
		Countdown:          timer.Countdown(),
		EligibleToActivate: timer.EligibleToActivate(),
		LastUpdated:        p.LastUpdated,
	}
}

func watchUpdate(update session.Update) dto.StatusResponse {
	p := update.Profile
	resp := dto.StatusResponse{
		Decision:           string(update.Decision),
		DisplayState:       update.DisplayState,
		Completion:         update.Completion,
		Countdown:          update.Countdown,
		EligibleToActivate: update.EligibleToActivate,
	}
	if p != nil {
		resp.AccountID = p.AccountID
		resp.ApprovalStatus = string(p.ApprovalStatus)
		resp.ActivityStatus = string(p.ActivityStatus)
		resp.StatusReason = p.StatusReason
		resp.HoldEnd = p.HoldEnd
		resp.LastUpdated = p.LastUpdated
	}
	return resp
}
