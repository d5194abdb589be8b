package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/vaultpay/vaultpay/internal/notification"
)

const (
	defaultTTL      = 5 * time.Minute
	defaultAttempts = 5
	defaultDigits   = 6
)

// Options tunes challenge issuance. Zero values fall back to the defaults
// (5 minute expiry, 5 attempts, 6 digits).
type Options struct {
	TTL      time.Duration
	Attempts int
	Digits   int
}

// Service issues and verifies challenges against a Store. The zero clock is
// time.Now; tests override it.
type Service struct {
	store    Store
	notifier notification.Notifier
	opts     Options
	now      func() time.Time
}

// NewService builds an OTP service. notifier may be nil, in which case
// issued codes are not delivered anywhere (tests).
func NewService(store Store, notifier notification.Notifier, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.Digits <= 0 {
		opts.Digits = defaultDigits
	}
	return &Service{store: store, notifier: notifier, opts: opts, now: time.Now}
}

// WithClock overrides the service clock. Test helper.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue creates a fresh challenge for the account, replacing any prior
// unconsumed one, and delivers the code through the notification channel.
// The code is never returned to the caller.
func (s *Service) Issue(ctx context.Context, accountID string) error {
	code, err := generateCode(s.opts.Digits)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	ch := Challenge{
		AccountID:         accountID,
		Code:              code,
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.opts.TTL),
		AttemptsRemaining: s.opts.Attempts,
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return err
	}
	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindOTPCode,
			Destination: accountID,
			Body:        fmt.Sprintf("Your verification code is %s", code),
		})
	}
	return nil
}

// Verify checks a submitted code against the account's live challenge.
// Success consumes the challenge exactly once: a second verification with
// the same code fails. Expiry and exhaustion invalidate the challenge; the
// caller must Issue again. A mismatch decrements the attempt budget but
// leaves the challenge live while attempts remain.
func (s *Service) Verify(ctx context.Context, accountID, submitted string) error {
	ch, ok, err := s.store.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrExpired
	}

	if s.now().UTC().After(ch.ExpiresAt) {
		if err := s.store.Delete(ctx, accountID); err != nil {
			return err
		}
		return ErrExpired
	}

	if subtleEqual(ch.Code, submitted) {
		if err := s.store.Delete(ctx, accountID); err != nil {
			return err
		}
		return nil
	}

	ch.AttemptsRemaining--
	if ch.AttemptsRemaining <= 0 {
		if err := s.store.Delete(ctx, accountID); err != nil {
			return err
		}
		return ErrExhausted
	}
	if err := s.store.Put(ctx, ch); err != nil {
		return err
	}
	return ErrInvalid
}

func subtleEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// generateCode returns a fixed-length numeric code with leading zeros
// preserved, from crypto/rand.
func generateCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
