package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaultpay/vaultpay/internal/account"
)

// PostgresStore persists accounts, transaction records and the audit trail in
// PostgreSQL. Every mutating call runs in a single transaction so the
// balance/record/audit unit commits or aborts as a whole; an unconfirmed
// commit surfaces as a hard error to the caller.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acct account.Account) error {
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (id, balance, daily_limit, daily_spent, spent_day, status, mfa_enabled, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		acct.ID, acct.Balance, acct.DailyLimit, acct.DailySpent, acct.SpentDay, string(acct.Status), acct.MFAEnabled, acct.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateAccount
	}
	return err
}

func (s *PostgresStore) Account(ctx context.Context, id string) (account.Account, error) {
	row := s.db.QueryRow(ctx, `SELECT id, balance, daily_limit, daily_spent, spent_day, status, mfa_enabled, created_at
        FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, status account.Status, action string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE accounts SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return account.ErrNotFound
	}
	if _, err := tx.Exec(ctx, `INSERT INTO audit_log (account_id, action, created_at) VALUES ($1, $2, now())`, id, action); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ApplyTransfer(ctx context.Context, rec TransactionRecord, action string) (TransactionRecord, error) {
	if rec.Amount <= 0 {
		return TransactionRecord{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionRecord{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance, dailySpent int64
	var spentDay string
	row := tx.QueryRow(ctx, `SELECT balance, daily_spent, spent_day FROM accounts WHERE id = $1 FOR UPDATE`, rec.AccountID)
	if err := row.Scan(&balance, &dailySpent, &spentDay); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransactionRecord{}, account.ErrNotFound
		}
		return TransactionRecord{}, err
	}
	if balance < rec.Amount {
		return TransactionRecord{}, ErrInsufficientBalance
	}

	day := account.Day(rec.CreatedAt)
	if spentDay != day {
		dailySpent = 0
	}
	dailySpent += rec.Amount

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance - $1, daily_spent = $2, spent_day = $3 WHERE id = $4`,
		rec.Amount, dailySpent, day, rec.AccountID); err != nil {
		return TransactionRecord{}, err
	}

	rec, err = insertRecord(ctx, tx, rec)
	if err != nil {
		return TransactionRecord{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO audit_log (account_id, action, created_at) VALUES ($1, $2, $3)`,
		rec.AccountID, action, rec.CreatedAt.UTC()); err != nil {
		return TransactionRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionRecord{}, fmt.Errorf("commit transfer: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) RecordAttempt(ctx context.Context, rec TransactionRecord, action string) (TransactionRecord, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionRecord{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, rec.AccountID).Scan(&exists); err != nil {
		return TransactionRecord{}, err
	}
	if !exists {
		return TransactionRecord{}, account.ErrNotFound
	}

	rec, err = insertRecord(ctx, tx, rec)
	if err != nil {
		return TransactionRecord{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO audit_log (account_id, action, created_at) VALUES ($1, $2, $3)`,
		rec.AccountID, action, rec.CreatedAt.UTC()); err != nil {
		return TransactionRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionRecord{}, fmt.Errorf("commit attempt record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Transactions(ctx context.Context, accountID string) ([]TransactionRecord, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT id, account_id, direction, counterparty, amount, fee, status, risk_score, note, origin_ip, origin_device, created_at
        FROM transactions WHERE account_id = $1 ORDER BY seq DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		var rec TransactionRecord
		var direction, status string
		if err := rows.Scan(&rec.ID, &rec.AccountID, &direction, &rec.Counterparty, &rec.Amount, &rec.Fee,
			&status, &rec.RiskScore, &rec.Note, &rec.OriginIP, &rec.OriginDevice, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Direction = Direction(direction)
		rec.Status = TransactionStatus(status)
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AuditTrail(ctx context.Context, accountID string) ([]AuditLogEntry, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `SELECT account_id, action, created_at FROM audit_log
        WHERE account_id = $1 ORDER BY id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditLogEntry
	for rows.Next() {
		var e AuditLogEntry
		if err := rows.Scan(&e.AccountID, &e.Action, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ensureAccount(ctx context.Context, accountID string) error {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return account.ErrNotFound
	}
	return nil
}

// insertRecord allocates the next monotonic record ID from the transactions
// sequence and inserts the row. Caller owns the transaction.
func insertRecord(ctx context.Context, tx pgx.Tx, rec TransactionRecord) (TransactionRecord, error) {
	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval(pg_get_serial_sequence('transactions', 'seq'))`).Scan(&seq); err != nil {
		return TransactionRecord{}, err
	}
	rec.ID = fmt.Sprintf("txn_%012d", seq)

	_, err := tx.Exec(ctx, `INSERT INTO transactions (seq, id, account_id, direction, counterparty, amount, fee, status, risk_score, note, origin_ip, origin_device, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		seq, rec.ID, rec.AccountID, string(rec.Direction), rec.Counterparty, rec.Amount, rec.Fee,
		string(rec.Status), rec.RiskScore, rec.Note, rec.OriginIP, rec.OriginDevice, rec.CreatedAt.UTC())
	if err != nil {
		return TransactionRecord{}, err
	}
	return rec, nil
}

func scanAccount(row pgx.Row) (account.Account, error) {
	var acct account.Account
	var status string
	if err := row.Scan(&acct.ID, &acct.Balance, &acct.DailyLimit, &acct.DailySpent, &acct.SpentDay,
		&status, &acct.MFAEnabled, &acct.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, err
	}
	acct.Status = account.Status(status)
	acct.CreatedAt = acct.CreatedAt.UTC()
	return acct, nil
}
