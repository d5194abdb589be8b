package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vaultpay/vaultpay/internal/account"
)

type inMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]account.Account
	// records and audit are stored newest-first per account
	records map[string][]TransactionRecord
	audit   map[string][]AuditLogEntry
	seq     uint64
}

// NewInMemory creates a concurrency-safe in-memory store. It backs the dev
// mode of the service and unit tests.
func NewInMemory() Store {
	return &inMemoryStore{
		accounts: make(map[string]account.Account),
		records:  make(map[string][]TransactionRecord),
		audit:    make(map[string][]AuditLogEntry),
	}
}

func (s *inMemoryStore) CreateAccount(_ context.Context, acct account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acct.ID]; exists {
		return ErrDuplicateAccount
	}
	s.accounts[acct.ID] = acct
	return nil
}

func (s *inMemoryStore) Account(_ context.Context, id string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

func (s *inMemoryStore) SetStatus(_ context.Context, id string, status account.Status, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return account.ErrNotFound
	}
	acct.Status = status
	s.accounts[id] = acct
	s.appendAudit(id, action, time.Now().UTC())
	return nil
}

func (s *inMemoryStore) ApplyTransfer(_ context.Context, rec TransactionRecord, action string) (TransactionRecord, error) {
	if rec.Amount <= 0 {
		return TransactionRecord{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[rec.AccountID]
	if !ok {
		return TransactionRecord{}, account.ErrNotFound
	}
	if acct.Balance < rec.Amount {
		return TransactionRecord{}, ErrInsufficientBalance
	}

	acct.Balance -= rec.Amount
	day := account.Day(rec.CreatedAt)
	if acct.SpentDay != day {
		acct.DailySpent = 0
		acct.SpentDay = day
	}
	acct.DailySpent += rec.Amount
	s.accounts[rec.AccountID] = acct

	rec.ID = s.nextID()
	s.records[rec.AccountID] = append([]TransactionRecord{rec}, s.records[rec.AccountID]...)
	s.appendAudit(rec.AccountID, action, rec.CreatedAt)
	return rec, nil
}

func (s *inMemoryStore) RecordAttempt(_ context.Context, rec TransactionRecord, action string) (TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[rec.AccountID]; !ok {
		return TransactionRecord{}, account.ErrNotFound
	}

	rec.ID = s.nextID()
	s.records[rec.AccountID] = append([]TransactionRecord{rec}, s.records[rec.AccountID]...)
	s.appendAudit(rec.AccountID, action, rec.CreatedAt)
	return rec, nil
}

func (s *inMemoryStore) Transactions(_ context.Context, accountID string) ([]TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.accounts[accountID]; !ok {
		return nil, account.ErrNotFound
	}
	out := make([]TransactionRecord, len(s.records[accountID]))
	copy(out, s.records[accountID])
	return out, nil
}

func (s *inMemoryStore) AuditTrail(_ context.Context, accountID string) ([]AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.accounts[accountID]; !ok {
		return nil, account.ErrNotFound
	}
	out := make([]AuditLogEntry, len(s.audit[accountID]))
	copy(out, s.audit[accountID])
	return out, nil
}

// nextID and appendAudit require s.mu held.

func (s *inMemoryStore) nextID() string {
	s.seq++
	return fmt.Sprintf("txn_%012d", s.seq)
}

func (s *inMemoryStore) appendAudit(accountID, action string, at time.Time) {
	entries := s.audit[accountID]
	s.audit[accountID] = append([]AuditLogEntry{{AccountID: accountID, Action: action, CreatedAt: at}}, entries...)
}
