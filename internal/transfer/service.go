package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaultpay/vaultpay/internal/account"
	"github.com/vaultpay/vaultpay/internal/alerts"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/metrics"
	"github.com/vaultpay/vaultpay/internal/otp"
	"github.com/vaultpay/vaultpay/internal/risk"
	"github.com/vaultpay/vaultpay/internal/syncutil"
)

// ErrStepUpRequired indicates the transfer's risk score requires OTP
// verification and no code was supplied. A challenge has been issued; the
// caller must retry with the code.
var ErrStepUpRequired = errors.New("step-up verification required")

const defaultFeePercent = 1.0

// Service orchestrates one outbound transfer end to end: freeze guard, risk
// scoring, step-up policy, OTP verification and the atomic ledger write. Per
// account, at most one Send is in flight at a time.
type Service struct {
	store      ledger.Store
	scorer     *risk.Scorer
	otp        *otp.Service
	feed       *alerts.Hub
	collector  *metrics.Collector
	locks      *syncutil.KeyMutex
	feePercent decimal.Decimal
	now        func() time.Time
}

// NewService builds a transfer service. collector may be nil. locks must be
// shared with the account service so freeze transitions and transfers on the
// same account serialize against each other.
func NewService(store ledger.Store, scorer *risk.Scorer, otpSvc *otp.Service, feed *alerts.Hub, collector *metrics.Collector, locks *syncutil.KeyMutex, feePercent float64) *Service {
	if feePercent < 0 {
		feePercent = defaultFeePercent
	}
	return &Service{
		store:      store,
		scorer:     scorer,
		otp:        otpSvc,
		feed:       feed,
		collector:  collector,
		locks:      locks,
		feePercent: decimal.NewFromFloat(feePercent),
		now:        time.Now,
	}
}

// SendInput captures one transfer request. It lives only for the duration of
// the evaluation and is never persisted as-is.
type SendInput struct {
	AccountID    string
	Recipient    string
	Amount       int64
	Note         string
	OriginIP     string
	OriginDevice string
	// OTPCode, when set, is the step-up proof for a very-high-risk transfer.
	OTPCode string
}

// Send evaluates and, when permitted, executes the transfer. Preconditions
// are checked in order with the first failure winning: freeze guard, amount
// positivity, step-up proof, balance sufficiency. The debit, transaction
// record and audit entry commit atomically. Every terminal outcome emits an
// alert.
func (s *Service) Send(ctx context.Context, input SendInput) (ledger.TransactionRecord, error) {
	unlock := s.locks.Lock(input.AccountID)
	defer unlock()

	acct, err := s.store.Account(ctx, input.AccountID)
	if err != nil {
		return ledger.TransactionRecord{}, err
	}

	// Frozen accounts fail before risk is computed.
	if err := account.CanTransfer(acct); err != nil {
		s.feed.Publish(input.AccountID, alerts.TypeError, "Transfer blocked: account is frozen")
		return ledger.TransactionRecord{}, err
	}

	if input.Amount <= 0 {
		return ledger.TransactionRecord{}, ledger.ErrInvalidAmount
	}

	overLimit := acct.DailyLimit > 0 && currentDailySpent(acct, s.now())+input.Amount > acct.DailyLimit
	assessment := s.scorer.Score(risk.Input{
		Amount:         input.Amount,
		Recipient:      input.Recipient,
		OverDailyLimit: overLimit,
	})

	rec := ledger.TransactionRecord{
		AccountID:    input.AccountID,
		Direction:    ledger.DirectionSent,
		Counterparty: input.Recipient,
		Amount:       input.Amount,
		Fee:          s.fee(input.Amount),
		RiskScore:    assessment.Score,
		Note:         input.Note,
		OriginIP:     input.OriginIP,
		OriginDevice: input.OriginDevice,
		CreatedAt:    s.now().UTC(),
	}

	if assessment.StepUpRequired {
		if input.OTPCode == "" {
			// Issue a fresh challenge and record the attempt as pending;
			// no balance mutation happens.
			if err := s.otp.Issue(ctx, input.AccountID); err != nil {
				return ledger.TransactionRecord{}, err
			}
			rec.Status = ledger.StatusPending
			rec, err = s.store.RecordAttempt(ctx, rec, attemptAction(rec))
			if err != nil {
				return ledger.TransactionRecord{}, err
			}
			s.collector.RecordTransfer(string(ledger.StatusPending), assessment.Score)
			s.feed.Publish(input.AccountID, alerts.TypeWarning, fmt.Sprintf("High-risk transfer of %d awaiting OTP confirmation", input.Amount))
			return rec, ErrStepUpRequired
		}

		if verifyErr := s.otp.Verify(ctx, input.AccountID, input.OTPCode); verifyErr != nil {
			s.collector.RecordOTP("failure")
			rec.Status = ledger.StatusBlocked
			rec, err = s.store.RecordAttempt(ctx, rec, attemptAction(rec))
			if err != nil {
				return ledger.TransactionRecord{}, err
			}
			s.collector.RecordTransfer(string(ledger.StatusBlocked), assessment.Score)
			s.feed.Publish(input.AccountID, alerts.TypeError, fmt.Sprintf("High-risk transfer of %d blocked: verification failed", input.Amount))
			return rec, verifyErr
		}
		s.collector.RecordOTP("success")
	}

	if acct.Balance < input.Amount {
		return ledger.TransactionRecord{}, ledger.ErrInsufficientBalance
	}

	rec.Status = ledger.StatusCompleted
	if assessment.Level == risk.LevelHigh {
		// High band executes but is flagged for review.
		rec.Status = ledger.StatusUnderReview
	}

	rec, err = s.store.ApplyTransfer(ctx, rec, completedAction(rec))
	if err != nil {
		return ledger.TransactionRecord{}, err
	}

	s.collector.RecordTransfer(string(rec.Status), assessment.Score)
	switch rec.Status {
	case ledger.StatusUnderReview:
		s.feed.Publish(input.AccountID, alerts.TypeWarning, fmt.Sprintf("Transfer of %d to %s completed, flagged for review", rec.Amount, rec.Counterparty))
	default:
		s.feed.Publish(input.AccountID, alerts.TypeSuccess, fmt.Sprintf("Successful transfer: %d sent to %s", rec.Amount, rec.Counterparty))
	}
	if overLimit {
		s.feed.Publish(input.AccountID, alerts.TypeWarning, "Daily transaction limit exceeded")
	}

	return rec, nil
}

// Balance returns the committed balance for the account.
func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	acct, err := s.store.Account(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Transactions lists the account's records newest-first.
func (s *Service) Transactions(ctx context.Context, accountID string) ([]ledger.TransactionRecord, error) {
	return s.store.Transactions(ctx, accountID)
}

// AuditTrail lists the account's audit entries newest-first.
func (s *Service) AuditTrail(ctx context.Context, accountID string) ([]ledger.AuditLogEntry, error) {
	return s.store.AuditTrail(ctx, accountID)
}

// fee computes the display fee: feePercent of amount rounded to the nearest
// minor unit. Informational only; the debit is the amount alone.
func (s *Service) fee(amount int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(s.feePercent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// currentDailySpent rolls DailySpent forward across the day boundary.
func currentDailySpent(acct account.Account, now time.Time) int64 {
	if acct.SpentDay != account.Day(now) {
		return 0
	}
	return acct.DailySpent
}

func attemptAction(rec ledger.TransactionRecord) string {
	return fmt.Sprintf("transfer %s: %d to %s (risk %d)", rec.Status, rec.Amount, rec.Counterparty, rec.RiskScore)
}

func completedAction(rec ledger.TransactionRecord) string {
	return fmt.Sprintf("transfer %s: %d sent to %s (fee %d, risk %d)", rec.Status, rec.Amount, rec.Counterparty, rec.Fee, rec.RiskScore)
}
