// internal/repository/postgres/ledger_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"sparkwallet/internal/domain"
	"sparkwallet/internal/repository"
	"sparkwallet/internal/util"
)

// LedgerRepository implements repository.LedgerRepository for PostgreSQL.
type LedgerRepository struct{}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) repository.LedgerRepository {
	return &LedgerRepository{}
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Insert appends an immutable ledger row and fills in its generated ID.
func (r *LedgerRepository) Insert(ctx context.Context, q repository.DBExecutor, tx *domain.LedgerTransaction) error {
	query := `INSERT INTO ledger_transactions
                (user_id, amount, transaction_type, action_type, reference_id, balance_after, notes, idempotency_key, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		tx.UserID, tx.Amount, tx.TransactionType, tx.ActionType,
		tx.ReferenceID, tx.BalanceAfter, tx.Notes, tx.IdempotencyKey, tx.CreatedAt,
	).Scan(&tx.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return util.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to insert ledger transaction for user %d: %w", tx.UserID, err)
	}
	return nil
}

// GetByIdempotencyKey fetches the row previously recorded under the key.
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, q repository.DBExecutor, key string) (*domain.LedgerTransaction, error) {
	var tx domain.LedgerTransaction
	query := `SELECT id, user_id, amount, transaction_type, action_type, reference_id, balance_after, notes, idempotency_key, created_at
              FROM ledger_transactions WHERE idempotency_key = $1`
	err := q.GetContext(ctx, &tx, query, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ledger transaction by idempotency key: %w", err)
	}
	return &tx, nil
}

// ListByUser returns a user's ledger rows newest first plus the total count.
func (r *LedgerRepository) ListByUser(ctx context.Context, q repository.DBExecutor, userID int64, limit, offset int) ([]domain.LedgerTransaction, int64, error) {
	transactions := []domain.LedgerTransaction{}
	query := `SELECT id, user_id, amount, transaction_type, action_type, reference_id, balance_after, notes, idempotency_key, created_at
              FROM ledger_transactions
              WHERE user_id = $1
              ORDER BY id DESC
              LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &transactions, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger transactions for user %d: %w", userID, err)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM ledger_transactions WHERE user_id = $1`
	if err := q.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger transactions for user %d: %w", userID, err)
	}

	return transactions, total, nil
}
