package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
)

const payloadPrefix = "order"

// Adapter issues payment requests for orders.
type Adapter interface {
	// Initiate asks provider to charge order and returns provider reference.
	// An empty reference means payment is confirmed out of band.
	Initiate(ctx context.Context, order *model.Order) (string, error)
}

// Orders is the order lifecycle used by payment processing.
type Orders interface {
	Get(ctx context.Context, id int64) (*model.Order, error)
	Transition(ctx context.Context, id int64, to model.OrderStatus, reason string) error
	AttachPaymentRef(ctx context.Context, id int64, ref string) error
}

// TextSender delivers plain text messages to chats.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// NewPayload builds unique invoice payload bound to order.
func NewPayload(orderID int64) string {
	return fmt.Sprintf("%s:%d:%s", payloadPrefix, orderID, uuid.NewString())
}

// ParsePayload extracts order identifier from invoice payload.
func ParsePayload(payload string) (int64, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 || parts[0] != payloadPrefix {
		return 0, fmt.Errorf("%w: malformed payload %q", domainErrors.ErrPaymentFailure, payload)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: malformed payload %q", domainErrors.ErrPaymentFailure, payload)
	}
	if _, err := uuid.Parse(parts[2]); err != nil {
		return 0, fmt.Errorf("%w: malformed payload %q", domainErrors.ErrPaymentFailure, payload)
	}
	return id, nil
}

// Service coordinates payment adapter callbacks with order lifecycle.
type Service struct {
	adapter  Adapter
	orders   Orders
	sender   TextSender
	currency string
	logger   *slog.Logger
}

// NewService constructs payment service.
func NewService(adapter Adapter, orders Orders, sender TextSender, currency string, logger *slog.Logger) *Service {
	return &Service{
		adapter:  adapter,
		orders:   orders,
		sender:   sender,
		currency: currency,
		logger:   logger,
	}
}

// Manual reports whether orders wait for administrator confirmation.
func (s *Service) Manual() bool {
	_, ok := s.adapter.(ManualAdapter)
	return ok
}

// Initiate starts payment of order. When the provider rejects the request the order is cancelled.
func (s *Service) Initiate(ctx context.Context, order *model.Order) error {
	ref, err := s.adapter.Initiate(ctx, order)
	if err != nil {
		s.logger.Error("payment initiation failed",
			slog.Int64("order_id", order.ID),
			slog.String("error", err.Error()))
		if terr := s.orders.Transition(ctx, order.ID, model.OrderStatusCancelled, "payment initiation failed"); terr != nil {
			return fmt.Errorf("%w: %v (cancel: %v)", domainErrors.ErrPaymentFailure, err, terr)
		}
		order.Status = model.OrderStatusCancelled
		return fmt.Errorf("%w: %v", domainErrors.ErrPaymentFailure, err)
	}

	if ref == "" {
		s.logger.Info("order awaits manual payment confirmation", slog.Int64("order_id", order.ID))
		return nil
	}
	if err := s.orders.AttachPaymentRef(ctx, order.ID, ref); err != nil {
		return fmt.Errorf("store payment reference: %w", err)
	}
	order.PaymentRef = ref
	s.logger.Info("invoice issued", slog.Int64("order_id", order.ID))
	return nil
}

func (s *Service) resolve(ctx context.Context, payload string) (*model.Order, error) {
	id, err := ParsePayload(payload)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentRef != payload {
		return nil, fmt.Errorf("%w: payload does not match order %d", domainErrors.ErrPaymentFailure, id)
	}
	return order, nil
}

// PreCheckout validates provider request before the customer is charged.
func (s *Service) PreCheckout(ctx context.Context, payload string, total int, currency string) error {
	order, err := s.resolve(ctx, payload)
	if err != nil {
		return err
	}
	if order.Status != model.OrderStatusCreated {
		return fmt.Errorf("%w: order %d is %s", domainErrors.ErrPaymentFailure, order.ID, order.Status)
	}
	if int64(total) != order.Total {
		return fmt.Errorf("%w: amount %d does not match order total %d", domainErrors.ErrPaymentFailure, total, order.Total)
	}
	if !strings.EqualFold(currency, s.currency) {
		return fmt.Errorf("%w: unexpected currency %s", domainErrors.ErrPaymentFailure, currency)
	}
	return nil
}

// Confirm marks order paid after successful provider charge. Repeated confirmations are ignored.
func (s *Service) Confirm(ctx context.Context, payload, chargeID string) (*model.Order, error) {
	order, err := s.resolve(ctx, payload)
	if err != nil {
		return nil, err
	}
	if order.Status == model.OrderStatusPaid {
		return order, nil
	}
	if err := s.orders.Transition(ctx, order.ID, model.OrderStatusPaid, "charge "+chargeID); err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			s.logger.Error("payment received for closed order",
				slog.Int64("order_id", order.ID),
				slog.String("status", string(order.Status)),
				slog.String("charge_id", chargeID),
			)
			return nil, fmt.Errorf("%w: order %d is %s, charge %s", domainErrors.ErrRefundRequired, order.ID, order.Status, chargeID)
		}
		return nil, err
	}
	order.Status = model.OrderStatusPaid
	s.logger.Info("payment confirmed", slog.Int64("order_id", order.ID))
	return order, nil
}

// Fail cancels order and tells customer why.
func (s *Service) Fail(ctx context.Context, orderID int64, reason string) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.orders.Transition(ctx, orderID, model.OrderStatusCancelled, reason); err != nil {
		return err
	}
	s.tell(ctx, order.CustomerID, fmt.Sprintf("Payment for order #%d failed: %s. The order is cancelled.", orderID, reason))
	return nil
}

// MarkPaid confirms payment on behalf of administrator.
func (s *Service) MarkPaid(ctx context.Context, orderID, adminID int64) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	reason := fmt.Sprintf("confirmed by admin %d", adminID)
	if err := s.orders.Transition(ctx, orderID, model.OrderStatusPaid, reason); err != nil {
		return err
	}
	s.tell(ctx, order.CustomerID, fmt.Sprintf("Payment for order #%d is confirmed. Thank you!", orderID))
	return nil
}

// CancelByAdmin cancels order on behalf of administrator.
func (s *Service) CancelByAdmin(ctx context.Context, orderID, adminID int64) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	reason := fmt.Sprintf("cancelled by admin %d", adminID)
	if err := s.orders.Transition(ctx, orderID, model.OrderStatusCancelled, reason); err != nil {
		return err
	}
	s.tell(ctx, order.CustomerID, fmt.Sprintf("Order #%d was cancelled by the shop.", orderID))
	return nil
}

func (s *Service) tell(ctx context.Context, chatID int64, text string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.SendText(ctx, chatID, text); err != nil {
		s.logger.Warn("customer notification failed",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()))
	}
}

// IsRejected reports whether err is a payment rejection that can be shown to customer.
func IsRejected(err error) bool {
	return errors.Is(err, domainErrors.ErrPaymentFailure)
}
