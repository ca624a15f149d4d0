// internal/domain/membership.go
package domain

import "time"

// Tier is a membership level governing feature access, independent of the
// credit wallet. Subscriptions are billed externally; the wallet only governs
// a-la-carte credit spends.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
)

// Paid reports whether the tier requires an active subscription.
func (t Tier) Paid() bool {
	return t == TierPremium || t == TierVIP
}

// Membership records a user's tier alongside its external subscription
// reference. A paid tier with a non-nil ExpiresAt is cancelled but still
// inside its paid period; once ExpiresAt passes, a lazy read flips the tier
// to free. Mutated only by subscription lifecycle events, never by the
// ledger path.
type Membership struct {
	UserID         int64      `db:"user_id" json:"user_id"`
	Tier           Tier       `db:"tier" json:"tier"`
	SubscriptionID *string    `db:"subscription_id" json:"subscription_id"`
	StartedAt      time.Time  `db:"started_at" json:"started_at"`
	ExpiresAt      *time.Time `db:"expires_at" json:"expires_at"` // nil while the subscription is active
	UpdatedAt      time.Time  `db:"updated_at" json:"-"`
}

// NewMembership creates a free membership for a user.
func NewMembership(userID int64) *Membership {
	now := time.Now().UTC()
	return &Membership{
		UserID:    userID,
		Tier:      TierFree,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// EffectiveTier resolves the tier at the given instant: a cancelled paid
// membership keeps its tier until ExpiresAt, then reads as free.
func (m *Membership) EffectiveTier(now time.Time) Tier {
	if m.Tier.Paid() && m.ExpiresAt != nil && !now.Before(*m.ExpiresAt) {
		return TierFree
	}
	return m.Tier
}

// PendingCancel reports whether the membership is cancelled but still inside
// its paid period at the given instant. Only such memberships may be
// reactivated.
func (m *Membership) PendingCancel(now time.Time) bool {
	return m.Tier.Paid() && m.ExpiresAt != nil && now.Before(*m.ExpiresAt)
}

// TierLimits are the per-tier usage ceilings consumed by the swipe/matching
// feature layer.
type TierLimits struct {
	DailySwipes       int `json:"daily_swipes"` // -1 = unlimited
	MonthlySuperLikes int `json:"monthly_super_likes"`
	MonthlyBoosts     int `json:"monthly_boosts"`
}

var tierFeatures = map[Tier][]string{
	TierFree:    {"swipe", "match", "chat"},
	TierPremium: {"swipe", "match", "chat", "see_likes", "unlimited_swipes", "monthly_boost"},
	TierVIP:     {"swipe", "match", "chat", "see_likes", "unlimited_swipes", "monthly_boost", "priority_likes", "incognito", "message_before_match"},
}

var tierLimits = map[Tier]TierLimits{
	TierFree:    {DailySwipes: 50, MonthlySuperLikes: 1, MonthlyBoosts: 0},
	TierPremium: {DailySwipes: -1, MonthlySuperLikes: 10, MonthlyBoosts: 1},
	TierVIP:     {DailySwipes: -1, MonthlySuperLikes: 30, MonthlyBoosts: 5},
}

// Features returns the ordered capability list for a tier.
func Features(tier Tier) []string {
	features := tierFeatures[tier]
	out := make([]string, len(features))
	copy(out, features)
	return out
}

// Limits returns the usage ceilings for a tier. Unknown tiers get the free
// limits.
func Limits(tier Tier) TierLimits {
	if limits, ok := tierLimits[tier]; ok {
		return limits
	}
	return tierLimits[TierFree]
}
