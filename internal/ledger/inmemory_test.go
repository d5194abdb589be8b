package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vaultpay/vaultpay/internal/account"
)

func newTestAccount(id string, balance int64) account.Account {
	return account.Account{
		ID:         id,
		Balance:    balance,
		DailyLimit: 420_000,
		Status:     account.StatusActive,
		CreatedAt:  time.Now().UTC(),
	}
}

func transferRecord(accountID string, amount int64) TransactionRecord {
	return TransactionRecord{
		AccountID:    accountID,
		Direction:    DirectionSent,
		Counterparty: "John Doe",
		Amount:       amount,
		Status:       StatusCompleted,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestInMemoryStore_ApplyTransferDebitsAtomically(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if err := s.CreateAccount(ctx, newTestAccount("acct-1", 10_000)); err != nil {
		t.Fatalf("create account: %v", err)
	}

	rec, err := s.ApplyTransfer(ctx, transferRecord("acct-1", 1_500), "transfer completed")
	if err != nil {
		t.Fatalf("apply transfer: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("expected record ID to be assigned")
	}

	acct, err := s.Account(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.Balance != 8_500 {
		t.Fatalf("expected balance 8500, got %d", acct.Balance)
	}
	if acct.DailySpent != 1_500 {
		t.Fatalf("expected daily spent 1500, got %d", acct.DailySpent)
	}

	recs, err := s.Transactions(ctx, "acct-1")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(recs))
	}

	trail, err := s.AuditTrail(ctx, "acct-1")
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 1 || trail[0].Action != "transfer completed" {
		t.Fatalf("expected exactly one audit entry, got %+v", trail)
	}
}

func TestInMemoryStore_InsufficientBalanceLeavesNoTrace(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateAccount(ctx, newTestAccount("acct-1", 1_000))

	if _, err := s.ApplyTransfer(ctx, transferRecord("acct-1", 5_000), "transfer completed"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	acct, _ := s.Account(ctx, "acct-1")
	if acct.Balance != 1_000 {
		t.Fatalf("balance mutated on rejected transfer: %d", acct.Balance)
	}
	recs, _ := s.Transactions(ctx, "acct-1")
	if len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
	trail, _ := s.AuditTrail(ctx, "acct-1")
	if len(trail) != 0 {
		t.Fatalf("expected no audit entries, got %d", len(trail))
	}
}

func TestInMemoryStore_MonotonicRecordIDs(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateAccount(ctx, newTestAccount("acct-1", 100_000))

	var prev string
	for i := 0; i < 5; i++ {
		rec, err := s.ApplyTransfer(ctx, transferRecord("acct-1", 100), "transfer completed")
		if err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
		if prev != "" && rec.ID <= prev {
			t.Fatalf("record IDs not monotonic: %s after %s", rec.ID, prev)
		}
		prev = rec.ID
	}
}

func TestInMemoryStore_DailySpentResetsOnDayBoundary(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateAccount(ctx, newTestAccount("acct-1", 100_000))

	yesterday := transferRecord("acct-1", 2_000)
	yesterday.CreatedAt = time.Now().UTC().Add(-24 * time.Hour)
	if _, err := s.ApplyTransfer(ctx, yesterday, "transfer completed"); err != nil {
		t.Fatalf("first transfer: %v", err)
	}

	if _, err := s.ApplyTransfer(ctx, transferRecord("acct-1", 3_000), "transfer completed"); err != nil {
		t.Fatalf("second transfer: %v", err)
	}

	acct, _ := s.Account(ctx, "acct-1")
	if acct.DailySpent != 3_000 {
		t.Fatalf("expected daily spent reset to 3000, got %d", acct.DailySpent)
	}
}

func TestInMemoryStore_ConcurrentTransfersNeverOverdraw(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateAccount(ctx, newTestAccount("acct-1", 10_000))

	const workers = 30
	const amount = int64(500)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := transferRecord("acct-1", amount)
			rec.Note = fmt.Sprintf("tx-%d", i)
			if _, err := s.ApplyTransfer(ctx, rec, "transfer completed"); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		if !errors.Is(err, ErrInsufficientBalance) {
			t.Fatalf("unexpected error: %v", err)
		}
		rejected++
	}

	acct, _ := s.Account(ctx, "acct-1")
	if acct.Balance < 0 {
		t.Fatalf("balance went negative: %d", acct.Balance)
	}
	accepted := workers - rejected
	if acct.Balance != 10_000-int64(accepted)*amount {
		t.Fatalf("balance %d inconsistent with %d accepted transfers", acct.Balance, accepted)
	}
	recs, _ := s.Transactions(ctx, "acct-1")
	if len(recs) != accepted {
		t.Fatalf("expected %d records, got %d", accepted, len(recs))
	}
}

func TestInMemoryStore_SetStatusAppendsAudit(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.CreateAccount(ctx, newTestAccount("acct-1", 0))

	if err := s.SetStatus(ctx, "acct-1", account.StatusFrozen, "account frozen"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	acct, _ := s.Account(ctx, "acct-1")
	if acct.Status != account.StatusFrozen {
		t.Fatalf("expected frozen, got %s", acct.Status)
	}
	trail, _ := s.AuditTrail(ctx, "acct-1")
	if len(trail) != 1 || trail[0].Action != "account frozen" {
		t.Fatalf("unexpected audit trail %+v", trail)
	}

	if err := s.SetStatus(ctx, "missing", account.StatusFrozen, "x"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
