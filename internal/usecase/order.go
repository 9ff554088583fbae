package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/domain/repository"
	"github.com/polkiloo/flowershop/internal/metrics"
)

// OrderUseCase encapsulates order lookups and status transitions.
type OrderUseCase struct {
	orders  repository.OrderRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, logger *slog.Logger, m *metrics.Metrics) *OrderUseCase {
	return &OrderUseCase{orders: orders, logger: logger, metrics: m}
}

func (u *OrderUseCase) Get(ctx context.Context, id int64) (*model.Order, error) {
	return u.orders.Get(ctx, id)
}

// ListByCustomer returns orders ordered by creation time ascending.
func (u *OrderUseCase) ListByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return u.orders.ListByCustomer(ctx, customerID)
}

// History returns status audit trail of order.
func (u *OrderUseCase) History(ctx context.Context, id int64) ([]model.StatusChange, error) {
	return u.orders.History(ctx, id)
}

// AttachPaymentRef stores external payment reference of order.
func (u *OrderUseCase) AttachPaymentRef(ctx context.Context, id int64, ref string) error {
	return u.orders.SetPaymentRef(ctx, id, ref)
}

// AwaitingPayment returns unpaid invoiced orders created before the cutoff.
func (u *OrderUseCase) AwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	return u.orders.ListAwaitingPayment(ctx, createdBefore, limit)
}

// Transition moves order to status. Rejected transitions are reported at error level.
func (u *OrderUseCase) Transition(ctx context.Context, id int64, to model.OrderStatus, reason string) error {
	if err := u.orders.UpdateStatus(ctx, id, to, reason); err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			u.logger.Error("order transition rejected",
				slog.Int64("order_id", id),
				slog.String("to", string(to)),
				slog.String("error", err.Error()))
		}
		return err
	}
	u.metrics.OrderTransition(string(to))
	u.logger.Info("order status changed",
		slog.Int64("order_id", id),
		slog.String("status", string(to)),
		slog.String("reason", reason))
	return nil
}
