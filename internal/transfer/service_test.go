package transfer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultpay/vaultpay/internal/account"
	"github.com/vaultpay/vaultpay/internal/alerts"
	"github.com/vaultpay/vaultpay/internal/ledger"
	"github.com/vaultpay/vaultpay/internal/otp"
	"github.com/vaultpay/vaultpay/internal/risk"
	"github.com/vaultpay/vaultpay/internal/syncutil"
)

type fixture struct {
	svc      *Service
	store    ledger.Store
	otpStore otp.Store
	feed     *alerts.Hub
}

func newFixture(t *testing.T, balance int64) (*fixture, string) {
	t.Helper()
	store := ledger.NewInMemory()
	otpStore := otp.NewMemoryStore()
	otpSvc := otp.NewService(otpStore, nil, otp.Options{})
	feed := alerts.NewHub(50)
	locks := &syncutil.KeyMutex{}
	svc := NewService(store, risk.NewScorer(risk.Config{}), otpSvc, feed, nil, locks, 1.0)

	acct := account.Account{
		ID:         "acct-1",
		DailyLimit: 420_000,
		SpentDay:   account.Day(time.Now()),
		Status:     account.StatusActive,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.CreateAccount(context.Background(), acct))
	ledger.SeedBalance(store, acct.ID, balance)
	return &fixture{svc: svc, store: store, otpStore: otpStore, feed: feed}, acct.ID
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	acct, err := f.store.Account(context.Background(), id)
	require.NoError(t, err)
	return acct.Balance
}

func (f *fixture) liveCode(t *testing.T, id string) string {
	t.Helper()
	ch, ok, err := f.otpStore.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok, "expected a live OTP challenge")
	return ch.Code
}

// Scenario: moderate transfer to a plain recipient completes without step-up.
func TestSendLowRiskCompletes(t *testing.T) {
	f, id := newFixture(t, 456_357)
	ctx := context.Background()

	rec, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "John Doe", Amount: 21_000})
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusCompleted, rec.Status)
	assert.LessOrEqual(t, rec.RiskScore, 50)
	assert.Equal(t, int64(210), rec.Fee) // 1% informational, not debited
	assert.Equal(t, int64(435_357), f.balance(t, id))

	recs, err := f.svc.Transactions(ctx, id)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	trail, err := f.svc.AuditTrail(ctx, id)
	require.NoError(t, err)
	require.Len(t, trail, 1)
}

// Scenario: very-high-risk transfer without OTP returns step-up required,
// issues a challenge, records a pending attempt and leaves balance intact.
func TestSendVeryHighRiskRequiresStepUp(t *testing.T) {
	f, id := newFixture(t, 500_000)
	ctx := context.Background()

	rec, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "Suspicious Account", Amount: 294_000})
	assert.ErrorIs(t, err, ErrStepUpRequired)

	assert.Equal(t, ledger.StatusPending, rec.Status)
	assert.Greater(t, rec.RiskScore, 75)
	assert.Equal(t, int64(500_000), f.balance(t, id))

	// Retrying with the issued code completes and debits exactly once.
	code := f.liveCode(t, id)
	done, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "Suspicious Account", Amount: 294_000, OTPCode: code})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, done.Status)
	assert.Equal(t, int64(206_000), f.balance(t, id))
}

// Scenario: frozen account fails immediately, before any risk computation
// or record creation.
func TestSendFrozenAccountBlockedImmediately(t *testing.T) {
	f, id := newFixture(t, 100_000)
	ctx := context.Background()
	require.NoError(t, f.store.SetStatus(ctx, id, account.StatusFrozen, "account frozen: fraud signal"))

	_, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "John Doe", Amount: 1_000})
	assert.ErrorIs(t, err, account.ErrFrozen)
	assert.Equal(t, int64(100_000), f.balance(t, id))

	recs, err := f.svc.Transactions(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// Pending verification blocks transfers just like frozen.
func TestSendPendingVerificationBlocked(t *testing.T) {
	f, id := newFixture(t, 100_000)
	ctx := context.Background()
	require.NoError(t, f.store.SetStatus(ctx, id, account.StatusPendingVerification, "unfreeze requested"))

	_, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "John Doe", Amount: 1_000})
	assert.ErrorIs(t, err, account.ErrFrozen)
}

// Scenario: amount exceeding balance fails with no partial deduction and no
// record.
func TestSendInsufficientBalance(t *testing.T) {
	f, id := newFixture(t, 5_000)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "John Doe", Amount: 9_000})
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, int64(5_000), f.balance(t, id))

	recs, err := f.svc.Transactions(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// Zero and negative amounts are rejected before any state is touched.
func TestSendNonPositiveAmount(t *testing.T) {
	f, id := newFixture(t, 5_000)
	ctx := context.Background()

	for _, amount := range []int64{0, -100} {
		_, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "John Doe", Amount: amount})
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, "amount %d", amount)
	}
	assert.Equal(t, int64(5_000), f.balance(t, id))
	recs, _ := f.svc.Transactions(ctx, id)
	assert.Empty(t, recs)
}

// A wrong OTP proof produces a blocked record and no debit; the OTP errors
// surface the kind, never the expected code.
func TestSendInvalidOTPBlocks(t *testing.T) {
	f, id := newFixture(t, 500_000)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "Suspicious Account", Amount: 294_000})
	require.ErrorIs(t, err, ErrStepUpRequired)

	code := f.liveCode(t, id)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	rec, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "Suspicious Account", Amount: 294_000, OTPCode: wrong})
	assert.ErrorIs(t, err, otp.ErrInvalid)
	assert.Equal(t, ledger.StatusBlocked, rec.Status)
	assert.Equal(t, int64(500_000), f.balance(t, id))
}

// A consumed OTP cannot be replayed to authorize a second transfer.
func TestSendOTPNoReplay(t *testing.T) {
	f, id := newFixture(t, 900_000)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "Suspicious Account", Amount: 294_000})
	require.ErrorIs(t, err, ErrStepUpRequired)
	code := f.liveCode(t, id)

	_, err = f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "Suspicious Account", Amount: 294_000, OTPCode: code})
	require.NoError(t, err)

	rec, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "Suspicious Account", Amount: 294_000, OTPCode: code})
	assert.Error(t, err)
	assert.Equal(t, ledger.StatusBlocked, rec.Status)
	assert.Equal(t, int64(606_000), f.balance(t, id))
}

// High band (51-75) executes the debit but flags the record for review.
func TestSendHighBandFlaggedUnderReview(t *testing.T) {
	f, id := newFixture(t, 500_000)
	ctx := context.Background()

	// base 20 + (65000-10000)/1000 = 75: top of the high band
	rec, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "Mike Johnson", Amount: 65_000})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusUnderReview, rec.Status)
	assert.Equal(t, int64(435_000), f.balance(t, id))
}

// Concurrent sends on one account never overdraw and the final balance
// matches a serial execution of the accepted subset.
func TestSendConcurrentNeverOverdraws(t *testing.T) {
	f, id := newFixture(t, 10_000)
	ctx := context.Background()

	const workers = 25
	const amount = int64(1_000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Send(ctx, SendInput{AccountID: id, Recipient: "John Doe", Amount: amount})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !assert.ErrorIs(t, err, ledger.ErrInsufficientBalance) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	assert.Equal(t, int64(0), f.balance(t, id))

	recs, err := f.svc.Transactions(ctx, id)
	require.NoError(t, err)
	assert.Len(t, recs, accepted)
}

// Exceeding the daily limit raises risk and a warning alert but never
// hard-blocks.
func TestSendOverDailyLimitAdvisoryOnly(t *testing.T) {
	f, _ := newFixture(t, 0)
	ctx := context.Background()

	acct := account.Account{
		ID:         "acct-limited",
		Balance:    50_000,
		DailyLimit: 5_000,
		SpentDay:   account.Day(time.Now()),
		Status:     account.StatusActive,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateAccount(ctx, acct))

	first, err := f.svc.Send(ctx, SendInput{AccountID: acct.ID, Recipient: "Landlord", Amount: 3_000})
	require.NoError(t, err)
	assert.Equal(t, 20, first.RiskScore)

	// Second transfer pushes past the 5000 advisory limit: the score
	// carries the bonus but the transfer still completes.
	second, err := f.svc.Send(ctx, SendInput{AccountID: acct.ID, Recipient: "Landlord", Amount: 3_000})
	require.NoError(t, err)
	assert.Equal(t, 20+risk.DefaultDailyLimitBonus, second.RiskScore)
	assert.Equal(t, int64(44_000), f.balance(t, acct.ID))

	var sawWarning bool
	for _, a := range f.feed.List(acct.ID) {
		if a.Type == alerts.TypeWarning && a.Message == "Daily transaction limit exceeded" {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning)
}

func TestFeeRoundedToNearestMinorUnit(t *testing.T) {
	f, _ := newFixture(t, 0)

	assert.Equal(t, int64(210), f.svc.fee(21_000))
	assert.Equal(t, int64(1), f.svc.fee(50))  // 0.5 rounds up
	assert.Equal(t, int64(0), f.svc.fee(49))  // 0.49 rounds down
	assert.Equal(t, int64(39), f.svc.fee(3_850))
}
