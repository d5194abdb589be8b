package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/vaultpay/vaultpay/internal/account"
)

var (
	// ErrInsufficientBalance occurs when the account lacks available balance
	// to cover a requested debit.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount indicates a non-positive transfer amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateAccount indicates the account identifier already exists.
	ErrDuplicateAccount = errors.New("account exists")
)

// Direction classifies a transaction from the account's point of view.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// TransactionStatus is the terminal status of a transaction record. Records
// are immutable: the status is fixed at creation and never transitions. A
// retried transfer creates a new record.
type TransactionStatus string

const (
	StatusCompleted   TransactionStatus = "completed"
	StatusPending     TransactionStatus = "pending"
	StatusBlocked     TransactionStatus = "blocked"
	StatusUnderReview TransactionStatus = "under_review"
)

// TransactionRecord is the immutable audit-grade record of one transfer
// attempt that reached the ledger. IDs are generated by the store and are
// monotonic: generation order implies recency.
type TransactionRecord struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"account_id"`
	Direction    Direction         `json:"direction"`
	Counterparty string            `json:"counterparty"`
	Amount       int64             `json:"amount"`
	Fee          int64             `json:"fee"`
	Status       TransactionStatus `json:"status"`
	RiskScore    int               `json:"risk_score"`
	Note         string            `json:"note,omitempty"`
	OriginIP     string            `json:"origin_ip,omitempty"`
	OriginDevice string            `json:"origin_device,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AuditLogEntry is one append-only entry in the per-account audit trail.
// Ledger-affecting actions write exactly one entry; pure reads write none.
type AuditLogEntry struct {
	AccountID string    `json:"account_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the durable backend for accounts, transaction records and the
// audit trail. ApplyTransfer and RecordAttempt are the atomic primitives the
// transfer ledger is built on: either every write in the call is observable
// or none is, including under concurrent execution. Reads reflect committed
// state only.
type Store interface {
	CreateAccount(ctx context.Context, acct account.Account) error
	Account(ctx context.Context, id string) (account.Account, error)

	// SetStatus transitions the freeze state and appends the matching audit
	// entry as one unit.
	SetStatus(ctx context.Context, id string, status account.Status, action string) error

	// ApplyTransfer debits rec.Amount from the account, rolls DailySpent
	// forward (resetting on a day boundary), inserts rec and appends an
	// audit entry atomically. The balance precondition is re-checked inside
	// the critical section; ErrInsufficientBalance leaves no trace.
	ApplyTransfer(ctx context.Context, rec TransactionRecord, action string) (TransactionRecord, error)

	// RecordAttempt inserts rec and appends an audit entry atomically with
	// no balance mutation. Used for pending and blocked outcomes.
	RecordAttempt(ctx context.Context, rec TransactionRecord, action string) (TransactionRecord, error)

	// Transactions returns the account's records newest-first.
	Transactions(ctx context.Context, accountID string) ([]TransactionRecord, error)

	// AuditTrail returns the account's audit entries newest-first.
	AuditTrail(ctx context.Context, accountID string) ([]AuditLogEntry, error)
}
