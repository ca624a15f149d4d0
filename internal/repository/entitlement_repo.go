// internal/repository/entitlement_repo.go
package repository

import (
	"context"

	"sparkwallet/internal/domain"
)

// EntitlementRepository persists premium-action grants.
type EntitlementRepository interface {
	// Upsert writes a grant; an existing grant for the same
	// (user, action, reference) is refreshed in place (last write wins).
	// The write is a single atomic statement.
	Upsert(ctx context.Context, q DBExecutor, grant *domain.EntitlementGrant) error
	// Get fetches the grant for (user, action, reference), expired or not.
	Get(ctx context.Context, q DBExecutor, userID int64, action domain.Action, referenceID int64) (*domain.EntitlementGrant, error)
	// Delete removes a grant; used when a one-shot flag is consumed.
	// util.ErrNotFound when no grant existed. The delete is a single atomic
	// statement, so two concurrent consumers of one grant cannot both succeed.
	Delete(ctx context.Context, q DBExecutor, userID int64, action domain.Action, referenceID int64) error
}
