// internal/repository/postgres/membership_pg.go
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

// MembershipRepository implements repository.MembershipRepository for PostgreSQL.
type MembershipRepository struct{}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db *sqlx.DB) repository.MembershipRepository {
	return &MembershipRepository{}
}

// Get fetches a user's membership record.
func (r *MembershipRepository) Get(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Membership, error) {
	var membership domain.Membership
	query := `SELECT user_id, tier, subscription_id, started_at, expires_at, updated_at
              FROM memberships WHERE user_id = $1`
	err := q.GetContext(ctx, &membership, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get membership for user %d: %w", userID, err)
	}
	return &membership, nil
}

// Upsert writes the membership record keyed by user.
func (r *MembershipRepository) Upsert(ctx context.Context, q repository.DBExecutor, m *domain.Membership) error {
	m.UpdatedAt = time.Now().UTC()
	query := `INSERT INTO memberships (user_id, tier, subscription_id, started_at, expires_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (user_id)
              DO UPDATE SET tier = EXCLUDED.tier,
                            subscription_id = EXCLUDED.subscription_id,
                            started_at = EXCLUDED.started_at,
                            expires_at = EXCLUDED.expires_at,
                            updated_at = EXCLUDED.updated_at`
	if _, err := q.ExecContext(ctx, query, m.UserID, m.Tier, m.SubscriptionID, m.StartedAt, m.ExpiresAt, m.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert membership for user %d: %w", m.UserID, err)
	}
	return nil
}

// WebhookEventRepository implements repository.WebhookEventRepository for PostgreSQL.
type WebhookEventRepository struct{}

// NewWebhookEventRepository creates a new WebhookEventRepository.
func NewWebhookEventRepository(db *sqlx.DB) repository.WebhookEventRepository {
	return &WebhookEventRepository{}
}

// Claim records a provider event before processing; returns false when the
// event was already claimed. The unique index makes the insert the
// deduplication point, so two concurrent deliveries of the same event cannot
// both claim it.
func (r *WebhookEventRepository) Claim(ctx context.Context, q repository.DBExecutor, provider, eventID, eventType string) (bool, error) {
	query := `INSERT INTO webhook_events (provider, event_id, event_type, processed_at, created_at)
              VALUES ($1, $2, $3, $4, $4)
              ON CONFLICT (provider, event_id) DO NOTHING`
	result, err := q.ExecContext(ctx, query, provider, eventID, eventType, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event %s/%s: %w", provider, eventID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for webhook event %s/%s: %w", provider, eventID, err)
	}
	return rowsAffected > 0, nil
}

// Release drops a claim whose processing failed.
func (r *WebhookEventRepository) Release(ctx context.Context, q repository.DBExecutor, provider, eventID string) error {
	query := `DELETE FROM webhook_events WHERE provider = $1 AND event_id = $2`
	if _, err := q.ExecContext(ctx, query, provider, eventID); err != nil {
		return fmt.Errorf("failed to release webhook event %s/%s: %w", provider, eventID, err)
	}
	return nil
}
