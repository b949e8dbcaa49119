package repository

import (
	"context"

	"github.com/tm-acme-shop/acme-shop-tax-service/internal/models"
)

// LookupStore is the keyed store behind the lookup cache. Keys are
// content hashes of the serialized request plus the cache epoch, so
// entries never need explicit invalidation.
type LookupStore interface {
	// Get returns the stored result for key, or nil on a miss.
	Get(ctx context.Context, key string) (*models.PackageResult, error)
	Set(ctx context.Context, key string, result *models.PackageResult) error
}

// ResultRepository persists the package results actually used by a
// calculation pass, keyed by cart/order ID. The set is cleared and
// rebuilt on every pass; capture and refund reporting read it later.
type ResultRepository interface {
	Replace(ctx context.Context, cartID string, results []*models.PackageResult) error
	GetByCartID(ctx context.Context, cartID string) ([]*models.PackageResult, error)
	Delete(ctx context.Context, cartID string) error
}

// Compile-time interface checks.
var (
	_ LookupStore      = (*RedisLookupStore)(nil)
	_ LookupStore      = (*MemoryLookupStore)(nil)
	_ ResultRepository = (*PostgresResultRepository)(nil)
)
