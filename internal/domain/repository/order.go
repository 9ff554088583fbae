package repository

import (
	"context"
	"time"

	"github.com/polkiloo/flowershop/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	// Create stores order with its items atomically, assigning id, status and timestamps.
	Create(ctx context.Context, order model.Order) (*model.Order, error)
	Get(ctx context.Context, id int64) (*model.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
	// UpdateStatus moves order from created to a terminal status.
	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, reason string) error
	SetPaymentRef(ctx context.Context, id int64, ref string) error
	ListAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error)
	History(ctx context.Context, id int64) ([]model.StatusChange, error)
}
