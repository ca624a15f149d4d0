// internal/repository/membership_repo.go
package repository

import (
	"context"

	"sparkwallet/internal/domain"
)

// MembershipRepository persists membership tier state.
type MembershipRepository interface {
	// Get fetches a user's membership record; util.ErrNotFound when the user
	// has never held one.
	Get(ctx context.Context, q DBExecutor, userID int64) (*domain.Membership, error)
	// Upsert writes the membership record keyed by user.
	Upsert(ctx context.Context, q DBExecutor, membership *domain.Membership) error
}

// WebhookEventRepository records processed provider events so replays are
// acknowledged without reprocessing.
type WebhookEventRepository interface {
	// Claim records (provider, eventID) before processing; returns false when
	// the event was already claimed. Two concurrent deliveries of the same
	// event cannot both claim it.
	Claim(ctx context.Context, q DBExecutor, provider, eventID, eventType string) (bool, error)
	// Release drops a claim whose processing failed, so the provider's retry
	// can run the event again.
	Release(ctx context.Context, q DBExecutor, provider, eventID string) error
}
