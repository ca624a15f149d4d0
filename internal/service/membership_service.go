// internal/service/membership_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"sparkwallet/internal/domain"
	"sparkwallet/internal/repository"
	"sparkwallet/internal/util"
)

// MembershipService is the tier state machine driven by external
// subscription lifecycle events. It never touches the credit ledger:
// subscriptions are billed externally, the wallet only governs a-la-carte
// spends.
type MembershipService interface {
	// Resolve returns the user's membership with its tier evaluated at the
	// current instant. A cancelled paid tier whose period has ended is
	// downgraded to free on this read (lazy downgrade) and the downgrade is
	// persisted. Users without a record resolve to free.
	Resolve(ctx context.Context, userID int64) (*domain.Membership, error)
	// Upgrade moves the user onto a paid tier. The tier must be premium or
	// vip; upgrading also covers paid-to-paid plan switches.
	Upgrade(ctx context.Context, userID int64, tier domain.Tier, subscriptionID string) error
	// Cancel soft-cancels: the paid tier is kept until periodEnd, after
	// which reads flip to free.
	Cancel(ctx context.Context, userID int64, periodEnd time.Time) error
	// Reactivate undoes a cancellation before the paid period ends. An
	// already-expired membership cannot be reactivated; the user must
	// re-subscribe.
	Reactivate(ctx context.Context, userID int64) error
	// Features and Limits are pure per-tier lookups.
	Features(tier domain.Tier) []string
	Limits(tier domain.Tier) domain.TierLimits
}

// membershipService implements the MembershipService interface.
type membershipService struct {
	dbExecutor     repository.DBExecutor
	membershipRepo repository.MembershipRepository
	now            func() time.Time
}

// NewMembershipService creates a new instance of MembershipService.
func NewMembershipService(dbExecutor repository.DBExecutor, membershipRepo repository.MembershipRepository) MembershipService {
	return &membershipService{
		dbExecutor:     dbExecutor,
		membershipRepo: membershipRepo,
		now:            time.Now,
	}
}

// Resolve reads the membership and applies the lazy downgrade.
func (s *membershipService) Resolve(ctx context.Context, userID int64) (*domain.Membership, error) {
	membership, err := s.membershipRepo.Get(ctx, s.dbExecutor, userID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return domain.NewMembership(userID), nil
		}
		return nil, util.WrapStorage(fmt.Errorf("resolve membership: %w", err))
	}

	now := s.now()
	if membership.EffectiveTier(now) == domain.TierFree && membership.Tier.Paid() {
		// Paid period ended; persist the downgrade so later reads are cheap.
		membership.Tier = domain.TierFree
		membership.SubscriptionID = nil
		membership.ExpiresAt = nil
		if err := s.membershipRepo.Upsert(ctx, s.dbExecutor, membership); err != nil {
			return nil, util.WrapStorage(fmt.Errorf("resolve membership: persist downgrade: %w", err))
		}
	}
	return membership, nil
}

// Upgrade handles the provider's upgrade event.
func (s *membershipService) Upgrade(ctx context.Context, userID int64, tier domain.Tier, subscriptionID string) error {
	if !tier.Paid() {
		return fmt.Errorf("upgrade: tier %q is not a paid tier: %w", tier, util.ErrInvalidInput)
	}
	if subscriptionID == "" {
		return fmt.Errorf("upgrade: missing subscription id: %w", util.ErrInvalidInput)
	}

	membership := &domain.Membership{
		UserID:         userID,
		Tier:           tier,
		SubscriptionID: &subscriptionID,
		StartedAt:      s.now(),
		ExpiresAt:      nil, // active subscription, no end in sight
	}
	if err := s.membershipRepo.Upsert(ctx, s.dbExecutor, membership); err != nil {
		return util.WrapStorage(fmt.Errorf("upgrade: %w", err))
	}
	return nil
}

// Cancel handles the provider's cancel event. The tier does not drop
// immediately; it survives until the end of the already-paid billing period.
func (s *membershipService) Cancel(ctx context.Context, userID int64, periodEnd time.Time) error {
	membership, err := s.membershipRepo.Get(ctx, s.dbExecutor, userID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return fmt.Errorf("cancel: user %d has no membership: %w", userID, util.ErrNotFound)
		}
		return util.WrapStorage(fmt.Errorf("cancel: %w", err))
	}
	if !membership.Tier.Paid() {
		return fmt.Errorf("cancel: user %d is not on a paid tier: %w", userID, util.ErrInvalidInput)
	}

	end := periodEnd.UTC()
	membership.ExpiresAt = &end
	if err := s.membershipRepo.Upsert(ctx, s.dbExecutor, membership); err != nil {
		return util.WrapStorage(fmt.Errorf("cancel: %w", err))
	}
	return nil
}

// Reactivate handles the provider's reactivate event. Only legal while the
// membership is cancelled but its paid period has not ended yet.
func (s *membershipService) Reactivate(ctx context.Context, userID int64) error {
	membership, err := s.membershipRepo.Get(ctx, s.dbExecutor, userID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return fmt.Errorf("reactivate: user %d has no membership: %w", userID, util.ErrReactivationNotAllowed)
		}
		return util.WrapStorage(fmt.Errorf("reactivate: %w", err))
	}
	if !membership.PendingCancel(s.now()) {
		return fmt.Errorf("reactivate: user %d: %w", userID, util.ErrReactivationNotAllowed)
	}

	membership.ExpiresAt = nil
	if err := s.membershipRepo.Upsert(ctx, s.dbExecutor, membership); err != nil {
		return util.WrapStorage(fmt.Errorf("reactivate: %w", err))
	}
	return nil
}

func (s *membershipService) Features(tier domain.Tier) []string {
	return domain.Features(tier)
}

func (s *membershipService) Limits(tier domain.Tier) domain.TierLimits {
	return domain.Limits(tier)
}
