package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-lifecycle/internal/api/dto"
	"github.com/spec-kit/account-lifecycle/internal/auth"
	"github.com/spec-kit/account-lifecycle/internal/service"
	apperrors "github.com/spec-kit/account-lifecycle/pkg/util/errorutil"
)

// OperatorHandler exposes the review/hold/suspend workflow to operators.
type OperatorHandler struct {
	lifecycle *service.LifecycleService
}

// NewOperatorHandler constructs handler.
func NewOperatorHandler(lifecycleService *service.LifecycleService) *OperatorHandler {
	return &OperatorHandler{lifecycle: lifecycleService}
}

// Review handles POST /accounts/:id/review.
func (h *OperatorHandler) Review(c *fiber.Ctx) error {
	operatorID, ok := auth.CurrentAccountID(c)
	if !ok {
		return apperrors.NewUnauthorized("not signed in")
	}
	accountID := c.Params("id")
	if accountID == "" {
		return fiber.NewError(http.StatusBadRequest, "account id required")
	}

	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	profile, err := h.lifecycle.Review(c.Context(), operatorID, accountID, service.ReviewInput{
		Approve:     req.Approve,
		Reason:      req.Reason,
		EmployeeID:  req.EmployeeID,
		JoiningDate: req.JoiningDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profile})
}

// Hold handles POST /accounts/:id/hold.
func (h *OperatorHandler) Hold(c *fiber.Ctx) error {
	operatorID, ok := auth.CurrentAccountID(c)
	if !ok {
		return apperrors.NewUnauthorized("not signed in")
	}
	accountID := c.Params("id")
	if accountID == "" {
		return fiber.NewError(http.StatusBadRequest, "account id required")
	}

	var req dto.HoldRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	profile, err := h.lifecycle.PlaceOnHold(c.Context(), operatorID, accountID, req.DurationDays, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profile})
}

// Suspend handles POST /accounts/:id/suspend.
func (h *OperatorHandler) Suspend(c *fiber.Ctx) error {
	operatorID, ok := auth.CurrentAccountID(c)
	if !ok {
		return apperrors.NewUnauthorized("not signed in")
	}
	accountID := c.Params("id")
	if accountID == "" {
		return fiber.NewError(http.StatusBadRequest, "account id required")
	}

	var req dto.SuspendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	profile, err := h.lifecycle.Suspend(c.Context(), operatorID, accountID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profile})
}

// LiftSuspension handles POST /accounts/:id/suspend/lift.
func (h *OperatorHandler) LiftSuspension(c *fiber.Ctx) error {
	operatorID, ok := auth.CurrentAccountID(c)
	if !ok {
		return apperrors.NewUnauthorized("not signed in")
	}
	accountID := c.Params("id")
	if accountID == "" {
		return fiber.NewError(http.StatusBadRequest, "account id required")
	}

	var req dto.SuspendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	profile, err := h.lifecycle.LiftSuspension(c.Context(), operatorID, accountID, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profile})
}
