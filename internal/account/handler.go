package account

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/otp"
)

// Handler exposes freeze-state endpoints for the authenticated account.
type Handler struct {
	service *Service
}

// NewHandler constructs an account handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type freezeRequest struct {
	Reason string `json:"reason"`
}

// Freeze moves the authenticated account to frozen.
func (h *Handler) Freeze(c *fiber.Ctx) error {
	var req freezeRequest
	_ = c.BodyParser(&req)
	if req.Reason == "" {
		req.Reason = "holder request"
	}
	accountID, _ := c.Locals("account_id").(string)

	if err := h.service.Freeze(c.UserContext(), accountID, req.Reason); err != nil {
		return mapStatusErr(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": StatusFrozen})
}

// RequestUnfreeze issues a verification code and moves the account to
// pending_verification.
func (h *Handler) RequestUnfreeze(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)

	if err := h.service.RequestUnfreeze(c.UserContext(), accountID); err != nil {
		return mapStatusErr(err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"status":  StatusPendingVerification,
		"message": "verification code sent",
	})
}

type verifyRequest struct {
	Code string `json:"code"`
}

// ConfirmUnfreeze verifies the submitted code and reactivates the account.
func (h *Handler) ConfirmUnfreeze(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, _ := c.Locals("account_id").(string)

	if err := h.service.ConfirmUnfreeze(c.UserContext(), accountID, req.Code); err != nil {
		switch {
		case errors.Is(err, otp.ErrInvalid):
			return fiber.NewError(http.StatusUnauthorized, "invalid code, attempts remaining")
		case errors.Is(err, otp.ErrExpired):
			return fiber.NewError(http.StatusUnauthorized, "code expired, request a new one")
		case errors.Is(err, otp.ErrExhausted):
			return fiber.NewError(http.StatusUnauthorized, "attempts exhausted, account re-frozen")
		default:
			return mapStatusErr(err)
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": StatusActive})
}

// Get returns the authenticated account's profile.
func (h *Handler) Get(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	acct, err := h.service.Get(c.UserContext(), accountID)
	if err != nil {
		return mapStatusErr(err)
	}
	return c.Status(http.StatusOK).JSON(acct)
}

func mapStatusErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(http.StatusConflict, "operation not valid in current account state")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
