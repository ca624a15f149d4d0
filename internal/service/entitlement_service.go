// internal/service/entitlement_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"sparkwallet/internal/domain"
	"sparkwallet/internal/metrics"
	"sparkwallet/internal/repository"
	"sparkwallet/internal/util"
)

// ActivationResult is returned to the caller after a successful spend.
type ActivationResult struct {
	TransactionID int64         `json:"transaction_id"`
	Action        domain.Action `json:"action"`
	NewBalance    int64         `json:"new_balance"`
	ExpiresAt     *time.Time    `json:"expires_at"` // nil for one-shot grants
}

// EntitlementService debits the wallet and grants the purchased capability.
type EntitlementService interface {
	// SpendAndActivate looks up the action's price, debits the wallet and
	// persists the grant. For time-boxed actions a repeat activation
	// refreshes the existing grant's expiry in place (explicit "refresh"
	// policy: remaining time is not refunded and durations do not stack).
	// The duration override is only honored for profile_boost.
	SpendAndActivate(ctx context.Context, userID int64, action domain.Action, referenceID *int64, duration *time.Duration) (*ActivationResult, error)
	// ActiveGrant returns the user's grant for an untargeted action and
	// whether it is active right now. Expiry is evaluated lazily; no sweep
	// job is involved.
	ActiveGrant(ctx context.Context, userID int64, action domain.Action) (*domain.EntitlementGrant, bool, error)
	// HasSuperLiked reports whether the user has ever super-liked the target.
	HasSuperLiked(ctx context.Context, userID, targetID int64) (bool, error)
	// ConsumeOneShot clears a one-shot flag grant (e.g. undo_swipes) once the
	// feature layer has honored it. util.ErrNotFound when no grant exists.
	ConsumeOneShot(ctx context.Context, userID int64, action domain.Action) error
}

// entitlementService implements the EntitlementService interface.
type entitlementService struct {
	dbExecutor      repository.DBExecutor
	ledger          LedgerService
	entitlementRepo repository.EntitlementRepository
	pricing         domain.PricingTable
	now             func() time.Time
}

// NewEntitlementService creates a new instance of EntitlementService.
func NewEntitlementService(
	dbExecutor repository.DBExecutor,
	ledger LedgerService,
	entitlementRepo repository.EntitlementRepository,
	pricing domain.PricingTable,
) EntitlementService {
	return &entitlementService{
		dbExecutor:      dbExecutor,
		ledger:          ledger,
		entitlementRepo: entitlementRepo,
		pricing:         pricing,
		now:             time.Now,
	}
}

// SpendAndActivate resolves price and expiry policy first, debits the wallet,
// then persists the grant. The debit is the last unrecoverable step before
// the grant write; if the grant write still fails, the debit is compensated
// with a refund row rather than leaving a charged-but-ungranted state.
func (s *entitlementService) SpendAndActivate(ctx context.Context, userID int64, action domain.Action, referenceID *int64, duration *time.Duration) (*ActivationResult, error) {
	entry, ok := s.pricing.Lookup(action)
	if !ok {
		return nil, fmt.Errorf("spend: action %q: %w", action, util.ErrUnknownAction)
	}
	// A non-positive target would land on reference 0, the key reserved for
	// untargeted grants.
	if action == domain.ActionSuperLike && (referenceID == nil || *referenceID <= 0) {
		return nil, fmt.Errorf("spend: super_like requires a target: %w", util.ErrInvalidInput)
	}

	// Expiry policy is fully resolved before any money moves.
	grantedAt := s.now()
	var expiresAt *time.Time
	switch action {
	case domain.ActionProfileBoost:
		d := entry.DefaultDuration
		if duration != nil && *duration > 0 {
			d = *duration
		}
		t := grantedAt.Add(d)
		expiresAt = &t
	case domain.ActionSeeLikes:
		t := grantedAt.Add(entry.DefaultDuration)
		expiresAt = &t
	}

	transaction, err := s.ledger.Append(ctx, AppendRequest{
		UserID:          userID,
		Amount:          -entry.Cost,
		TransactionType: domain.TransactionTypeSpend,
		ActionType:      string(action),
		ReferenceID:     referenceID,
	})
	if err != nil {
		if util.IsError(err, util.ErrInsufficientFunds) {
			metrics.SpendRejections.Inc()
		}
		return nil, err
	}

	grant := &domain.EntitlementGrant{
		UserID:      userID,
		Action:      action,
		ReferenceID: refOrZero(referenceID),
		GrantedAt:   grantedAt,
		ExpiresAt:   expiresAt,
	}
	if err := s.entitlementRepo.Upsert(ctx, s.dbExecutor, grant); err != nil {
		return nil, s.compensate(ctx, userID, entry.Cost, action, referenceID, err)
	}

	metrics.EntitlementActivations.WithLabelValues(string(action)).Inc()
	return &ActivationResult{
		TransactionID: transaction.ID,
		Action:        action,
		NewBalance:    transaction.BalanceAfter,
		ExpiresAt:     expiresAt,
	}, nil
}

// compensate refunds a debit whose grant could not be persisted and returns
// the original failure.
func (s *entitlementService) compensate(ctx context.Context, userID, cost int64, action domain.Action, referenceID *int64, cause error) error {
	// The debit has already committed; the refund must not die with the
	// request. A client disconnect cancelling ctx would otherwise leave the
	// charged-but-ungranted state this path exists to repair.
	ctx = context.WithoutCancel(ctx)

	notes := fmt.Sprintf("activation of %s failed, debit refunded", action)
	if _, refundErr := s.ledger.Append(ctx, AppendRequest{
		UserID:          userID,
		Amount:          cost,
		TransactionType: domain.TransactionTypeRefund,
		ActionType:      string(action),
		ReferenceID:     referenceID,
		Notes:           &notes,
	}); refundErr != nil {
		return fmt.Errorf("spend: grant failed (%v) and refund failed: %w", cause, refundErr)
	}
	return fmt.Errorf("spend: failed to persist grant, debit refunded: %w", cause)
}

// ActiveGrant checks the grant for an untargeted action.
func (s *entitlementService) ActiveGrant(ctx context.Context, userID int64, action domain.Action) (*domain.EntitlementGrant, bool, error) {
	grant, err := s.entitlementRepo.Get(ctx, s.dbExecutor, userID, action, 0)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, util.WrapStorage(fmt.Errorf("active grant: %w", err))
	}
	return grant, grant.ActiveAt(s.now()), nil
}

// HasSuperLiked checks for a permanent super-like grant on the target.
func (s *entitlementService) HasSuperLiked(ctx context.Context, userID, targetID int64) (bool, error) {
	_, err := s.entitlementRepo.Get(ctx, s.dbExecutor, userID, domain.ActionSuperLike, targetID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return false, nil
		}
		return false, util.WrapStorage(fmt.Errorf("has super liked: %w", err))
	}
	return true, nil
}

// ConsumeOneShot clears a one-shot flag grant. The delete is the
// serialization point: of two concurrent consumers of the same grant, only
// the one whose delete removes the row succeeds.
func (s *entitlementService) ConsumeOneShot(ctx context.Context, userID int64, action domain.Action) error {
	if err := s.entitlementRepo.Delete(ctx, s.dbExecutor, userID, action, 0); err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return util.ErrNotFound
		}
		return util.WrapStorage(fmt.Errorf("consume one shot: %w", err))
	}
	return nil
}

func refOrZero(referenceID *int64) int64 {
	if referenceID != nil {
		return *referenceID
	}
	return 0
}
