// internal/service/admin_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"sparkwallet/internal/domain"
	"sparkwallet/internal/util"
)

// AdjustmentResult reports the balance movement of an admin adjustment.
type AdjustmentResult struct {
	TransactionID int64 `json:"transaction_id"`
	OldBalance    int64 `json:"old_balance"`
	NewBalance    int64 `json:"new_balance"`
}

// AdminService is the privileged support/refund path around the wallet. It
// writes through the same ledger append as ordinary spends, so the
// non-negative invariant and the per-user serialization point are shared;
// there is no admin fast path that bypasses either.
type AdminService interface {
	// Adjust credits or debits a wallet outside the normal spend flow. The
	// reason is mandatory and persisted verbatim; the acting admin is
	// recorded as the row's reference. The delta is deliberately not checked
	// against the pricing table. A debit below zero is rejected with the
	// same insufficient-funds semantics as a normal spend.
	Adjust(ctx context.Context, userID, delta int64, reason string, adminID int64) (*AdjustmentResult, error)
}

// adminService implements the AdminService interface.
type adminService struct {
	ledger LedgerService
}

// NewAdminService creates a new instance of AdminService.
func NewAdminService(ledger LedgerService) AdminService {
	return &adminService{ledger: ledger}
}

func (s *adminService) Adjust(ctx context.Context, userID, delta int64, reason string, adminID int64) (*AdjustmentResult, error) {
	if delta == 0 {
		return nil, fmt.Errorf("adjust: zero delta: %w", util.ErrInvalidInput)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("adjust: a reason is required: %w", util.ErrInvalidInput)
	}
	if adminID == 0 {
		return nil, fmt.Errorf("adjust: missing acting admin id: %w", util.ErrInvalidInput)
	}

	transaction, err := s.ledger.Append(ctx, AppendRequest{
		UserID:          userID,
		Amount:          delta,
		TransactionType: domain.TransactionTypeAdminAdjustment,
		ActionType:      "manual_adjustment",
		ReferenceID:     &adminID,
		Notes:           &reason,
	})
	if err != nil {
		return nil, fmt.Errorf("adjust: %w", err)
	}

	return &AdjustmentResult{
		TransactionID: transaction.ID,
		OldBalance:    transaction.BalanceAfter - delta,
		NewBalance:    transaction.BalanceAfter,
	}, nil
}
