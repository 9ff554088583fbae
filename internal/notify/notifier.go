package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/metrics"
)

// Sender delivers plain text messages to chats.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Notifier fans order summaries out to administrators.
type Notifier struct {
	admins      model.AdminSet
	sender      Sender
	currency    string
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewNotifier constructs administrator notifier.
func NewNotifier(admins model.AdminSet, sender Sender, currency string, concurrency int, logger *slog.Logger, m *metrics.Metrics) *Notifier {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Notifier{
		admins:      admins,
		sender:      sender,
		currency:    currency,
		concurrency: concurrency,
		logger:      logger,
		metrics:     m,
	}
}

// OrderCreated sends order summary to every administrator. Delivery failures are logged and counted.
func (n *Notifier) OrderCreated(ctx context.Context, order *model.Order) model.NotificationReport {
	text := Summary(order, n.currency)
	return n.broadcast(ctx, order.ID, text)
}

func (n *Notifier) broadcast(ctx context.Context, orderID int64, text string) model.NotificationReport {
	var delivered, failed atomic.Int32

	g := new(errgroup.Group)
	g.SetLimit(n.concurrency)
	for _, adminID := range n.admins.IDs() {
		g.Go(func() error {
			if err := n.sender.SendText(ctx, adminID, text); err != nil {
				failed.Add(1)
				n.metrics.Notification(false)
				n.logger.Warn("admin notification failed",
					slog.Int64("order_id", orderID),
					slog.Int64("admin_id", adminID),
					slog.String("error", fmt.Errorf("%w: %v", domainErrors.ErrNotificationDelivery, err).Error()))
				return nil
			}
			delivered.Add(1)
			n.metrics.Notification(true)
			return nil
		})
	}
	_ = g.Wait()

	return model.NotificationReport{Delivered: int(delivered.Load()), Failed: int(failed.Load())}
}

// Summary renders order for administrators.
func Summary(order *model.Order, currency string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order #%d\n", order.ID)
	fmt.Fprintf(&b, "Customer: %d\n", order.CustomerID)
	for _, item := range order.Items {
		fmt.Fprintf(&b, "- %s x%d: %s\n", item.Title, item.Quantity, model.FormatPrice(item.Subtotal(), currency))
	}
	fmt.Fprintf(&b, "Total: %s\n", model.FormatPrice(order.Total, currency))
	fmt.Fprintf(&b, "Address: %s\n", order.Address)
	fmt.Fprintf(&b, "Delivery: %s\n", order.DeliveryTime)
	status := string(order.Status)
	if order.Status == model.OrderStatusCreated && order.PaymentRef == "" {
		status = "awaiting manual confirmation"
	}
	fmt.Fprintf(&b, "Status: %s", status)
	return b.String()
}
