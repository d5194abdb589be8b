package account

import (
	"errors"
	"time"
)

// Status is the freeze state of an account. Transfers are only permitted in
// StatusActive; the other two states block every transfer unconditionally.
type Status string

const (
	StatusActive              Status = "active"
	StatusFrozen              Status = "frozen"
	StatusPendingVerification Status = "pending_verification"
)

var (
	// ErrFrozen indicates the account's freeze state blocks the operation.
	ErrFrozen = errors.New("account frozen")

	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidTransition indicates the requested freeze-state transition is
	// not permitted from the account's current status.
	ErrInvalidTransition = errors.New("invalid account state transition")
)

// Account is a stored-value account. Balance and DailySpent are integer
// minor units; Balance is never negative at any observable point. All
// mutation goes through the ledger store.
type Account struct {
	ID         string `json:"id"`
	Balance    int64  `json:"balance"`
	DailyLimit int64  `json:"daily_limit"`
	DailySpent int64  `json:"daily_spent"`
	// SpentDay is the UTC day (2006-01-02) DailySpent accumulated on;
	// DailySpent resets when a transfer lands on a later day.
	SpentDay   string    `json:"spent_day"`
	Status     Status    `json:"status"`
	MFAEnabled bool      `json:"mfa_enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// CanTransfer reports whether the account's freeze state permits transfers.
// Both frozen and pending_verification fail closed.
func CanTransfer(a Account) error {
	if a.Status != StatusActive {
		return ErrFrozen
	}
	return nil
}

// Day formats t as a SpentDay value.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
