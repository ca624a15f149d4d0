// internal/repository/ledger_repo.go
package repository

import (
	"context"

	"sparkwallet/internal/domain"
)

// WalletRepository manages the materialized balance row that serves as the
// per-user serialization point for ledger appends.
type WalletRepository interface {
	// EnsureWallet creates the wallet row at zero balance if it does not
	// exist yet. Idempotent.
	EnsureWallet(ctx context.Context, q DBExecutor, userID int64) error
	// GetWalletForUpdate reads the wallet row under a row-level lock. Must be
	// called inside a transaction; concurrent appends for the same user block
	// here until the holder commits.
	GetWalletForUpdate(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// GetWallet reads the wallet row without locking (snapshot read).
	GetWallet(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// SetBalance writes the new balance. Only called inside the same
	// transaction that inserts the matching ledger row.
	SetBalance(ctx context.Context, q DBExecutor, userID, balance int64) error
}

// LedgerRepository manages the append-only transaction history.
type LedgerRepository interface {
	// Insert appends a ledger row and fills in its generated ID. Returns
	// util.ErrDuplicateEvent when the row's idempotency key was already used.
	Insert(ctx context.Context, q DBExecutor, tx *domain.LedgerTransaction) error
	// GetByIdempotencyKey fetches the row a prior append recorded under the
	// given key.
	GetByIdempotencyKey(ctx context.Context, q DBExecutor, key string) (*domain.LedgerTransaction, error)
	// ListByUser returns a user's rows newest first, plus the total count.
	ListByUser(ctx context.Context, q DBExecutor, userID int64, limit, offset int) ([]domain.LedgerTransaction, int64, error)
}
