package repository

import "context"

// Factory describes access to persistent repositories of a storage backend.
type Factory interface {
	Catalog() CatalogRepository
	Orders() OrderRepository
	Close()
}

// HealthChecker reports backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
