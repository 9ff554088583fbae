package app

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/domain/repository"
	"github.com/polkiloo/flowershop/internal/metrics"
	"github.com/polkiloo/flowershop/internal/payment"
	"github.com/polkiloo/flowershop/internal/usecase"
)

const expiredReason = "invoice expired"

// ShopFacade exposes shop operations to transports and background workers.
type ShopFacade struct {
	workflow *usecase.WorkflowUseCase
	catalog  *usecase.CatalogUseCase
	orders   *usecase.OrderUseCase
	payments *payment.Service
	health   repository.HealthChecker
	metrics  *metrics.Metrics
}

func NewShopFacade(
	workflow *usecase.WorkflowUseCase,
	catalog *usecase.CatalogUseCase,
	orders *usecase.OrderUseCase,
	payments *payment.Service,
	health repository.HealthChecker,
	m *metrics.Metrics,
) *ShopFacade {
	return &ShopFacade{
		workflow: workflow,
		catalog:  catalog,
		orders:   orders,
		payments: payments,
		health:   health,
		metrics:  m,
	}
}

func (f *ShopFacade) Browse(ctx context.Context, customerID int64) ([]model.Bouquet, error) {
	return f.workflow.Browse(ctx, customerID)
}

func (f *ShopFacade) SelectSize(ctx context.Context, customerID int64, size string) (model.Size, []model.Bouquet, error) {
	return f.workflow.SelectSize(ctx, customerID, size)
}

func (f *ShopFacade) AddByNumber(ctx context.Context, customerID int64, number, quantity int) (*usecase.SessionView, error) {
	return f.workflow.AddByNumber(ctx, customerID, number, quantity)
}

func (f *ShopFacade) AddToCart(ctx context.Context, customerID, bouquetID int64, quantity int) (*usecase.SessionView, error) {
	return f.workflow.AddItem(ctx, customerID, bouquetID, quantity)
}

func (f *ShopFacade) RemoveFromCart(ctx context.Context, customerID, bouquetID int64) (*usecase.SessionView, error) {
	return f.workflow.RemoveItem(ctx, customerID, bouquetID)
}

func (f *ShopFacade) Session(ctx context.Context, customerID int64) (*usecase.SessionView, error) {
	return f.workflow.Snapshot(ctx, customerID)
}

func (f *ShopFacade) StartCheckout(ctx context.Context, customerID int64) (*usecase.SessionView, error) {
	return f.workflow.Checkout(ctx, customerID)
}

func (f *ShopFacade) SetAddress(ctx context.Context, customerID int64, address string) (*usecase.SessionView, error) {
	return f.workflow.SetAddress(ctx, customerID, address)
}

func (f *ShopFacade) SetDeliveryTime(ctx context.Context, customerID int64, value string) (*usecase.SessionView, error) {
	return f.workflow.SetDeliveryTime(ctx, customerID, value)
}

func (f *ShopFacade) PlaceOrder(ctx context.Context, customerID int64) (*model.Order, error) {
	return f.workflow.Confirm(ctx, customerID)
}

func (f *ShopFacade) CancelSession(ctx context.Context, customerID int64) error {
	return f.workflow.Cancel(ctx, customerID)
}

func (f *ShopFacade) Catalog(ctx context.Context) ([]model.Bouquet, error) {
	return f.catalog.ListAvailable(ctx)
}

func (f *ShopFacade) AllBouquets(ctx context.Context) ([]model.Bouquet, error) {
	return f.catalog.List(ctx)
}

func (f *ShopFacade) CreateBouquet(ctx context.Context, bouquet model.Bouquet) (*model.Bouquet, error) {
	return f.catalog.Create(ctx, bouquet)
}

func (f *ShopFacade) ToggleStock(ctx context.Context, id int64) (*model.Bouquet, error) {
	return f.catalog.ToggleStock(ctx, id)
}

func (f *ShopFacade) SetBouquetImage(ctx context.Context, id int64, ref string) error {
	return f.catalog.SetImage(ctx, id, ref)
}

func (f *ShopFacade) SeedCatalog(ctx context.Context) (int, error) {
	return f.catalog.Seed(ctx)
}

func (f *ShopFacade) Order(ctx context.Context, id int64) (*model.Order, error) {
	return f.orders.Get(ctx, id)
}

func (f *ShopFacade) CustomerOrders(ctx context.Context, customerID int64) ([]model.Order, error) {
	return f.orders.ListByCustomer(ctx, customerID)
}

func (f *ShopFacade) OrderHistory(ctx context.Context, id int64) ([]model.StatusChange, error) {
	return f.orders.History(ctx, id)
}

func (f *ShopFacade) ManualPayments() bool {
	return f.payments.Manual()
}

func (f *ShopFacade) PreCheckout(ctx context.Context, payload string, total int, currency string) error {
	return f.payments.PreCheckout(ctx, payload, total, currency)
}

func (f *ShopFacade) ConfirmPayment(ctx context.Context, payload, chargeID string) (*model.Order, error) {
	return f.payments.Confirm(ctx, payload, chargeID)
}

// SetOrderStatus applies administrator decision about order payment.
func (f *ShopFacade) SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus, adminID int64) error {
	switch status {
	case model.OrderStatusPaid:
		return f.payments.MarkPaid(ctx, orderID, adminID)
	case model.OrderStatusCancelled:
		return f.payments.CancelByAdmin(ctx, orderID, adminID)
	default:
		return fmt.Errorf("%w: cannot move order to %s", domainErrors.ErrInvalidTransition, status)
	}
}

func (f *ShopFacade) AwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	return f.orders.AwaitingPayment(ctx, createdBefore, limit)
}

// ExpirePayment cancels unpaid order and tells the customer.
func (f *ShopFacade) ExpirePayment(ctx context.Context, orderID int64) error {
	if err := f.payments.Fail(ctx, orderID, expiredReason); err != nil {
		return err
	}
	f.metrics.PaymentExpired()
	return nil
}

func (f *ShopFacade) HealthCheck(ctx context.Context) error {
	if f.health == nil {
		return nil
	}
	return f.health.HealthCheck(ctx)
}

// Wait blocks until background order notifications finish.
func (f *ShopFacade) Wait() {
	f.workflow.Wait()
}
