package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/account"
	"github.com/vaultpay/vaultpay/internal/alerts"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/otp"
)

// Handler exposes money-movement endpoints.
type Handler struct {
	service *Service
	feed    *alerts.Hub
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service, feed *alerts.Hub) *Handler {
	return &Handler{service: service, feed: feed}
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note"`
	OTPCode   string `json:"otp_code"`
}

// Send evaluates and executes an outbound transfer for the authenticated
// account.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, _ := c.Locals("account_id").(string)

	rec, err := h.service.Send(c.UserContext(), SendInput{
		AccountID:    accountID,
		Recipient:    req.Recipient,
		Amount:       req.Amount,
		Note:         req.Note,
		OriginIP:     c.IP(),
		OriginDevice: c.Get(fiber.HeaderUserAgent),
		OTPCode:      req.OTPCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrStepUpRequired):
			// The attempt was recorded as pending and a code was sent.
			return c.Status(http.StatusAccepted).JSON(fiber.Map{
				"status":      rec.Status,
				"transaction": rec,
				"message":     "verification code sent, retry with otp_code",
			})
		case errors.Is(err, account.ErrFrozen):
			return fiber.NewError(http.StatusForbidden, "account is frozen")
		case errors.Is(err, account.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "account not found")
		case errors.Is(err, ledger.ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, ledger.ErrInsufficientBalance):
			return fiber.NewError(http.StatusBadRequest, "insufficient balance")
		case errors.Is(err, otp.ErrInvalid), errors.Is(err, otp.ErrExpired), errors.Is(err, otp.ErrExhausted):
			return fiber.NewError(http.StatusUnauthorized, "verification failed: "+err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	balance, err := h.service.Balance(c.UserContext(), accountID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status":      rec.Status,
		"transaction": rec,
		"balance":     balance,
	})
}

// Balance returns the authenticated account's committed balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	balance, err := h.service.Balance(c.UserContext(), accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"account_id": accountID, "balance": balance})
}

// Transactions lists the account's transaction records newest-first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	records, err := h.service.Transactions(c.UserContext(), accountID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": records})
}

// AuditTrail lists the account's audit entries newest-first.
func (h *Handler) AuditTrail(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	entries, err := h.service.AuditTrail(c.UserContext(), accountID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"audit_log": entries})
}

// Alerts returns the authenticated account's alert feed, newest first.
func (h *Handler) Alerts(c *fiber.Ctx) error {
	accountID, _ := c.Locals("account_id").(string)
	return c.Status(http.StatusOK).JSON(fiber.Map{"alerts": h.feed.List(accountID)})
}
