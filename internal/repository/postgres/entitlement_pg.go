// internal/repository/postgres/entitlement_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"sparkwallet/internal/domain"
	"sparkwallet/internal/repository"
	"sparkwallet/internal/util"
)

// EntitlementRepository implements repository.EntitlementRepository for PostgreSQL.
type EntitlementRepository struct{}

// NewEntitlementRepository creates a new EntitlementRepository.
func NewEntitlementRepository(db *sqlx.DB) repository.EntitlementRepository {
	return &EntitlementRepository{}
}

// Upsert writes a grant. A concurrent activation of the same (user, action,
// reference) resolves through the ON CONFLICT clause, so last write wins
// without a read-modify-write race.
func (r *EntitlementRepository) Upsert(ctx context.Context, q repository.DBExecutor, grant *domain.EntitlementGrant) error {
	query := `INSERT INTO entitlement_grants (user_id, action, reference_id, granted_at, expires_at)
              VALUES ($1, $2, $3, $4, $5)
              ON CONFLICT (user_id, action, reference_id)
              DO UPDATE SET granted_at = EXCLUDED.granted_at, expires_at = EXCLUDED.expires_at
              RETURNING id`
	err := q.QueryRowContext(ctx, query,
		grant.UserID, grant.Action, grant.ReferenceID, grant.GrantedAt, grant.ExpiresAt,
	).Scan(&grant.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert entitlement grant for user %d action %s: %w", grant.UserID, grant.Action, err)
	}
	return nil
}

// Get fetches the grant for (user, action, reference), expired or not.
func (r *EntitlementRepository) Get(ctx context.Context, q repository.DBExecutor, userID int64, action domain.Action, referenceID int64) (*domain.EntitlementGrant, error) {
	var grant domain.EntitlementGrant
	query := `SELECT id, user_id, action, reference_id, granted_at, expires_at
              FROM entitlement_grants
              WHERE user_id = $1 AND action = $2 AND reference_id = $3`
	err := q.GetContext(ctx, &grant, query, userID, action, referenceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entitlement grant for user %d action %s: %w", userID, action, err)
	}
	return &grant, nil
}

// Delete removes a grant. util.ErrNotFound when no grant existed: the DELETE
// itself is the serialization point, so of two concurrent consumers of one
// grant only the one whose statement removes the row succeeds.
func (r *EntitlementRepository) Delete(ctx context.Context, q repository.DBExecutor, userID int64, action domain.Action, referenceID int64) error {
	query := `DELETE FROM entitlement_grants WHERE user_id = $1 AND action = $2 AND reference_id = $3`
	result, err := q.ExecContext(ctx, query, userID, action, referenceID)
	if err != nil {
		return fmt.Errorf("failed to delete entitlement grant for user %d action %s: %w", userID, action, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after deleting entitlement grant for user %d action %s: %w", userID, action, err)
	}
	if rowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}
