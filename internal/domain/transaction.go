// internal/domain/transaction.go
package domain

import "time"

// TransactionType defines the business reason for a ledger entry.
type TransactionType string

const (
	TransactionTypePurchase        TransactionType = "purchase"
	TransactionTypeSpend           TransactionType = "spend"
	TransactionTypeAdminAdjustment TransactionType = "admin_adjustment"
	TransactionTypeRefund          TransactionType = "refund"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypePurchase, TransactionTypeSpend, TransactionTypeAdminAdjustment, TransactionTypeRefund:
		return true
	}
	return false
}

// LedgerTransaction is a single immutable row in a user's credit ledger.
// Amount is signed: positive rows credit the wallet, negative rows debit it.
// BalanceAfter snapshots the wallet balance immediately after the row was
// applied, so rows for a user ordered by ID form a prefix-sum sequence over
// an implicit starting balance of zero. Corrections are new rows, never edits.
type LedgerTransaction struct {
	ID              int64           `db:"id" json:"id"`                             // Primary key, BIGSERIAL in DB, per-user ordering key
	UserID          int64           `db:"user_id" json:"user_id"`                   // Wallet owner
	Amount          int64           `db:"amount" json:"amount"`                     // Signed credit delta
	TransactionType TransactionType `db:"transaction_type" json:"transaction_type"` // purchase, spend, admin_adjustment, refund
	ActionType      string          `db:"action_type" json:"action_type"`           // Feature/reason tag, e.g. profile_boost, manual_adjustment
	ReferenceID     *int64          `db:"reference_id" json:"reference_id"`         // Optional foreign identity (super-like target, admin actor)
	BalanceAfter    int64           `db:"balance_after" json:"balance_after"`       // Wallet balance after this row
	Notes           *string         `db:"notes" json:"notes"`                       // Optional free text (admin reason, audit context)
	IdempotencyKey  *string         `db:"idempotency_key" json:"-"`                 // At-most-once replay token
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`             // Timestamp of record creation
}

// NewLedgerTransaction creates a new LedgerTransaction instance. BalanceAfter
// is filled in by the append path once the prior balance is known.
func NewLedgerTransaction(
	userID int64,
	amount int64,
	txType TransactionType,
	actionType string,
	referenceID *int64,
	notes *string,
) *LedgerTransaction {
	return &LedgerTransaction{
		UserID:          userID,
		Amount:          amount,
		TransactionType: txType,
		ActionType:      actionType,
		ReferenceID:     referenceID,
		Notes:           notes,
		CreatedAt:       time.Now().UTC(),
	}
}
