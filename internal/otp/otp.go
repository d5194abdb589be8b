// Package otp issues and verifies one-time codes for step-up authentication.
// Codes are generated and kept server-side; callers only ever learn whether
// a submitted code verified and, on failure, the failure kind. The expected
// code itself never leaves the package.
package otp

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalid indicates a code mismatch. Attempts remaining were
	// decremented; the challenge stays live while attempts remain.
	ErrInvalid = errors.New("otp invalid")

	// ErrExpired indicates the challenge passed its expiry (or no live
	// challenge exists). Fails closed: the caller must request a new
	// challenge.
	ErrExpired = errors.New("otp expired")

	// ErrExhausted indicates the attempt budget ran out. The challenge is
	// invalidated; the caller must request a new challenge.
	ErrExhausted = errors.New("otp attempts exhausted")
)

// Challenge is a live server-side OTP challenge. At most one exists per
// account; issuing a new one invalidates any prior unconsumed challenge.
type Challenge struct {
	AccountID         string    `json:"account_id"`
	Code              string    `json:"code"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	AttemptsRemaining int       `json:"attempts_remaining"`
}

// Store persists at most one live challenge per account. Put replaces any
// existing challenge; Delete invalidates. Implementations need not be
// safe against concurrent verification of the same account; callers
// serialize per account.
type Store interface {
	Put(ctx context.Context, ch Challenge) error
	Get(ctx context.Context, accountID string) (Challenge, bool, error)
	Delete(ctx context.Context, accountID string) error
}
