// Package ports defines the interfaces the identity registry consumes.
package ports

import (
	"context"

	"tokengate/internal/identity/models"
	"tokengate/pkg/domain"
)

// Store persists verification records. Implementations return sentinel
// errors for infrastructure facts; the service translates them.
type Store interface {
	// Upsert writes a record, overwriting any prior one for the account.
	// Reports whether the account was newly added to the verified set.
	Upsert(ctx context.Context, identity *models.Identity) (created bool, err error)

	// UpsertBatch writes all records or none.
	UpsertBatch(ctx context.Context, identities []*models.Identity) error

	// Get returns the stored record regardless of expiration.
	Get(ctx context.Context, account domain.Address) (*models.Identity, error)

	// Delete removes the record and its verified-set entry.
	Delete(ctx context.Context, account domain.Address) error

	// List pages through the enumerable verified set in insertion order.
	List(ctx context.Context, page models.Page) (records []*models.Identity, total int, err error)

	// CountByLevel aggregates records per verification level.
	CountByLevel(ctx context.Context) ([]models.LevelCount, error)
}
