package handlers

import (
	"context"

	"github.com/polkiloo/flowershop/internal/domain/model"
)

// CatalogFacade exposes catalog reads.
type CatalogFacade interface {
	Catalog(ctx context.Context) ([]model.Bouquet, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	Order(ctx context.Context, id int64) (*model.Order, error)
	CustomerOrders(ctx context.Context, customerID int64) ([]model.Order, error)
	OrderHistory(ctx context.Context, id int64) ([]model.StatusChange, error)
	SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus, adminID int64) error
}

// HealthFacade reports storage availability.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// ShopFacade aggregates the full set of operations used across handlers.
type ShopFacade interface {
	CatalogFacade
	OrderFacade
	HealthFacade
}
