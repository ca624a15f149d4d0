// internal/service/wallet_reader.go
package service

import (
	"context"

	"sparkwallet/internal/util"
)

// WalletReader is the thin read facade feature consumers use. It keeps the
// "current balance" concept separate from the append-only history for callers
// that only need the former; it holds no state of its own.
type WalletReader interface {
	Balance(ctx context.Context, userID int64) (int64, error)
	CanAfford(ctx context.Context, userID, cost int64) (bool, error)
}

type walletReader struct {
	ledger LedgerService
}

// NewWalletReader creates a new WalletReader over the ledger.
func NewWalletReader(ledger LedgerService) WalletReader {
	return &walletReader{ledger: ledger}
}

func (r *walletReader) Balance(ctx context.Context, userID int64) (int64, error) {
	return r.ledger.GetBalance(ctx, userID)
}

func (r *walletReader) CanAfford(ctx context.Context, userID, cost int64) (bool, error) {
	if cost < 0 {
		return false, util.ErrInvalidInput
	}
	balance, err := r.ledger.GetBalance(ctx, userID)
	if err != nil {
		return false, err
	}
	return balance >= cost, nil
}
