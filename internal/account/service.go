package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vaultpay/vaultpay/internal/alerts"
	"github.com/vaultpay/vaultpay/internal/otp"
	"github.com/vaultpay/vaultpay/internal/syncutil"
)

// StatusStore is the slice of the ledger store the account service needs:
// account reads plus atomic status transitions with their audit entries.
type StatusStore interface {
	CreateAccount(ctx context.Context, acct Account) error
	Account(ctx context.Context, id string) (Account, error)
	SetStatus(ctx context.Context, id string, status Status, action string) error
}

// Service owns the freeze-state machine:
//
//	active -> frozen                 (fraud signal or administrative action)
//	frozen -> pending_verification   (holder requests unfreeze, OTP issued)
//	pending_verification -> active   (OTP verified)
//	pending_verification -> frozen   (attempts exhausted or challenge expired)
//
// No transfer-affecting operation is permitted outside active.
type Service struct {
	store StatusStore
	otp   *otp.Service
	feed  *alerts.Hub
	locks *syncutil.KeyMutex
}

// NewService builds an account service. locks must be the same mutex pool the
// transfer service uses so freeze transitions serialize against in-flight
// transfers on the same account.
func NewService(store StatusStore, otpSvc *otp.Service, feed *alerts.Hub, locks *syncutil.KeyMutex) *Service {
	return &Service{store: store, otp: otpSvc, feed: feed, locks: locks}
}

// CreateInput captures data required to open an account.
type CreateInput struct {
	Balance    int64
	DailyLimit int64
	MFAEnabled bool
}

// Create opens a new account. Balance is zero for real registrations; the
// demo seed passes an opening balance.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	acct := Account{
		ID:         uuid.New().String(),
		Balance:    input.Balance,
		DailyLimit: input.DailyLimit,
		SpentDay:   Day(time.Now()),
		Status:     StatusActive,
		MFAEnabled: input.MFAEnabled,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// Get returns the account by id.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.store.Account(ctx, id)
}

// Freeze moves an active account to frozen. Triggered by an external fraud
// signal or an administrative action.
func (s *Service) Freeze(ctx context.Context, id, reason string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	acct, err := s.store.Account(ctx, id)
	if err != nil {
		return err
	}
	if acct.Status != StatusActive {
		return ErrInvalidTransition
	}
	if err := s.store.SetStatus(ctx, id, StatusFrozen, "account frozen: "+reason); err != nil {
		return err
	}
	s.feed.Publish(id, alerts.TypeError, "Account frozen: "+reason)
	return nil
}

// RequestUnfreeze moves a frozen account to pending_verification and issues
// a fresh OTP challenge. Re-requesting from pending_verification reissues
// the challenge (the prior one is invalidated by issuance).
func (s *Service) RequestUnfreeze(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	acct, err := s.store.Account(ctx, id)
	if err != nil {
		return err
	}
	switch acct.Status {
	case StatusFrozen, StatusPendingVerification:
	default:
		return ErrInvalidTransition
	}

	if err := s.otp.Issue(ctx, id); err != nil {
		return err
	}
	if acct.Status == StatusFrozen {
		if err := s.store.SetStatus(ctx, id, StatusPendingVerification, "unfreeze requested, verification pending"); err != nil {
			return err
		}
	}
	s.feed.Publish(id, alerts.TypeInfo, "Unfreeze verification code sent")
	return nil
}

// ConfirmUnfreeze verifies the submitted code. Success reactivates the
// account. Exhausted attempts or an expired challenge drop the account back
// to frozen, and the holder must re-request. An invalid code with attempts
// remaining keeps the account in pending_verification.
func (s *Service) ConfirmUnfreeze(ctx context.Context, id, code string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	acct, err := s.store.Account(ctx, id)
	if err != nil {
		return err
	}
	if acct.Status != StatusPendingVerification {
		return ErrInvalidTransition
	}

	verifyErr := s.otp.Verify(ctx, id, code)
	switch {
	case verifyErr == nil:
		if err := s.store.SetStatus(ctx, id, StatusActive, "identity verified, account unfrozen"); err != nil {
			return err
		}
		s.feed.Publish(id, alerts.TypeSuccess, "Account unfrozen after verification")
		return nil
	case errors.Is(verifyErr, otp.ErrExhausted), errors.Is(verifyErr, otp.ErrExpired):
		if err := s.store.SetStatus(ctx, id, StatusFrozen, "unfreeze verification failed, account re-frozen"); err != nil {
			return err
		}
		s.feed.Publish(id, alerts.TypeWarning, "Unfreeze verification failed; account remains frozen")
		return verifyErr
	default:
		return verifyErr
	}
}
