// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"sparkwallet/internal/domain"
	"sparkwallet/internal/repository"
	"sparkwallet/internal/util"
)

// WalletRepository implements repository.WalletRepository for PostgreSQL.
type WalletRepository struct{}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) repository.WalletRepository {
	return &WalletRepository{}
}

// EnsureWallet creates the wallet row at zero balance if missing.
func (r *WalletRepository) EnsureWallet(ctx context.Context, q repository.DBExecutor, userID int64) error {
	query := `INSERT INTO wallets (user_id, balance, updated_at)
              VALUES ($1, 0, $2)
              ON CONFLICT (user_id) DO NOTHING`
	if _, err := q.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to ensure wallet for user %d: %w", userID, err)
	}
	return nil
}

// GetWalletForUpdate reads the wallet row under a row-level lock. The FOR
// UPDATE clause serializes concurrent appends for the same user; wallets of
// other users are untouched.
func (r *WalletRepository) GetWalletForUpdate(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT user_id, balance, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet for user %d: %w", userID, err)
	}
	return &wallet, nil
}

// GetWallet reads the wallet row without locking.
func (r *WalletRepository) GetWallet(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT user_id, balance, updated_at FROM wallets WHERE user_id = $1`
	err := q.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for user %d: %w", userID, err)
	}
	return &wallet, nil
}

// SetBalance writes the new balance for a wallet.
func (r *WalletRepository) SetBalance(ctx context.Context, q repository.DBExecutor, userID, balance int64) error {
	query := `UPDATE wallets SET balance = $1, updated_at = $2 WHERE user_id = $3`
	result, err := q.ExecContext(ctx, query, balance, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to set wallet balance for user %d: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after setting wallet balance for user %d: %w", userID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no rows affected when setting wallet balance for user %d, wallet might not exist", userID)
	}
	return nil
}
