package api

import (
	"context"
	"errors"

	"menu-api/domain"
)

// ErrSessionNotFound is returned for unknown or expired page sessions.
var ErrSessionNotFound = errors.New("session not found")

// Catalog abstracts the data service for handlers.
type Catalog interface {
	FetchBusiness(ctx context.Context, businessID string) (domain.Business, error)
	FetchAvailableProducts(ctx context.Context, businessID string) ([]domain.Product, error)
}

// catalogEvicter is implemented by catalogs that cache, so a menu refresh can
// bypass stale entries.
type catalogEvicter interface {
	Evict(ctx context.Context, businessID string)
}

// OrderPublisher hands confirmed orders to downstream services.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, order domain.OrderConfirmation) error
}

// Deduper prevents confirming the same order twice.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, sessionID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, sessionID, key string) error
}
