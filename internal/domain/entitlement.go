// internal/domain/entitlement.go
package domain

import "time"

// Action identifies a premium capability purchasable with credits.
type Action string

const (
	ActionProfileBoost Action = "profile_boost"
	ActionSuperLike    Action = "super_like"
	ActionSeeLikes     Action = "see_likes"
	ActionUndoSwipes   Action = "undo_swipes"
)

// Cumulative reports whether repeat activations of the action stack per
// distinct reference (super-like per target) rather than replacing a single
// per-user grant.
func (a Action) Cumulative() bool {
	return a == ActionSuperLike
}

// EntitlementGrant records an unlocked capability. Time-boxed grants carry an
// ExpiresAt and lapse passively; one-shot grants (super_like, undo_swipes)
// have none and are consumed or permanent. For capacity-limited actions the
// grant is unique per (user, action): a repeat activation refreshes the
// existing grant, last write wins.
type EntitlementGrant struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	Action      Action     `db:"action" json:"action"`
	ReferenceID int64      `db:"reference_id" json:"reference_id"` // 0 when the action has no target
	GrantedAt   time.Time  `db:"granted_at" json:"granted_at"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at"`
}

// ActiveAt reports whether the grant is active at the given instant. Grants
// without an expiry never lapse by time.
func (g *EntitlementGrant) ActiveAt(now time.Time) bool {
	return g.ExpiresAt == nil || now.Before(*g.ExpiresAt)
}
