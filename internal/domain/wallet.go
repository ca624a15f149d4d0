// internal/domain/wallet.go
package domain

import "time"

// Wallet is the materialized current balance of a user's credit ledger.
// It is never written outside the same database transaction that appends the
// corresponding ledger row, so it cannot drift from the ledger. Wallets are
// created implicitly at zero on a user's first transaction and are never
// deleted, only zeroed.
type Wallet struct {
	UserID    int64     `db:"user_id" json:"user_id"`       // Primary key; external identity
	Balance   int64     `db:"balance" json:"balance"`       // Current credits, always >= 0
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // Timestamp of last ledger append
}

// NewWallet creates a new Wallet instance with a zero balance.
func NewWallet(userID int64) *Wallet {
	return &Wallet{
		UserID:    userID,
		Balance:   0,
		UpdatedAt: time.Now().UTC(),
	}
}

// CanAfford reports whether the wallet covers the given cost.
func (w *Wallet) CanAfford(cost int64) bool {
	return cost >= 0 && w.Balance >= cost
}
