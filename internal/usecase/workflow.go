package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/domain/repository"
	"github.com/polkiloo/flowershop/internal/metrics"
)

const (
	defaultNotifyTimeout = 30 * time.Second
	lockStripes          = 64
)

// PaymentInitiator starts payment of a freshly created order.
type PaymentInitiator interface {
	Initiate(ctx context.Context, order *model.Order) error
}

// OrderNotifier announces created orders to administrators.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order *model.Order) model.NotificationReport
}

// CartLine is a cart item resolved against the catalog.
type CartLine struct {
	Bouquet  model.Bouquet
	Quantity int
}

// Subtotal returns line amount at current catalog price.
func (l CartLine) Subtotal() int64 {
	return l.Bouquet.Price * int64(l.Quantity)
}

// SessionView is a read-only projection of a session for rendering.
type SessionView struct {
	CustomerID int64
	State      model.SessionState
	Size       model.Size
	Lines      []CartLine
	Total      int64
	Delivery   model.Delivery
}

// WorkflowUseCase drives the per-customer ordering state machine.
type WorkflowUseCase struct {
	catalog  repository.CatalogRepository
	orders   repository.OrderRepository
	sessions repository.SessionRepository
	payments PaymentInitiator
	notifier OrderNotifier
	logger   *slog.Logger
	metrics  *metrics.Metrics

	notifyTimeout time.Duration
	locks         [lockStripes]sync.Mutex
	pending       sync.WaitGroup
}

// NewWorkflowUseCase constructs WorkflowUseCase.
func NewWorkflowUseCase(
	catalog repository.CatalogRepository,
	orders repository.OrderRepository,
	sessions repository.SessionRepository,
	payments PaymentInitiator,
	notifier OrderNotifier,
	logger *slog.Logger,
	m *metrics.Metrics,
) *WorkflowUseCase {
	return &WorkflowUseCase{
		catalog:       catalog,
		orders:        orders,
		sessions:      sessions,
		payments:      payments,
		notifier:      notifier,
		logger:        logger,
		metrics:       m,
		notifyTimeout: defaultNotifyTimeout,
	}
}

func stripe(customerID int64) int {
	return int(uint64(customerID) % lockStripes)
}

func (w *WorkflowUseCase) lock(customerID int64) func() {
	mu := &w.locks[stripe(customerID)]
	mu.Lock()
	return mu.Unlock
}

func (w *WorkflowUseCase) load(ctx context.Context, customerID int64) (*model.Session, error) {
	session, err := w.sessions.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return model.NewSession(customerID), nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.State.Terminal() {
		return model.NewSession(customerID), nil
	}
	return session, nil
}

func (w *WorkflowUseCase) save(ctx context.Context, session *model.Session) error {
	if err := w.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// leaveCheckout drops delivery draft and returns session to its cart state.
func leaveCheckout(session *model.Session) {
	session.Delivery = model.Delivery{}
	if session.Cart.Empty() {
		session.State = model.StateBrowsing
		return
	}
	session.State = model.StateCartNonEmpty
}

// Browse returns available catalog and resets size filter.
func (w *WorkflowUseCase) Browse(ctx context.Context, customerID int64) ([]model.Bouquet, error) {
	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	bouquets, err := w.catalog.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}

	leaveCheckout(session)
	session.Size = ""
	if err := w.save(ctx, session); err != nil {
		return nil, err
	}
	return bouquets, nil
}

// SelectSize narrows catalog to size and returns its available bouquets.
func (w *WorkflowUseCase) SelectSize(ctx context.Context, customerID int64, raw string) (model.Size, []model.Bouquet, error) {
	size, ok := model.ParseSize(raw)
	if !ok {
		return "", nil, domainErrors.ErrInvalidSize
	}

	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return "", nil, err
	}

	bouquets, err := w.catalog.ListAvailableBySize(ctx, size)
	if err != nil {
		return "", nil, err
	}

	leaveCheckout(session)
	session.Size = size
	if session.Cart.Empty() {
		session.State = model.StateSelecting
	}
	if err := w.save(ctx, session); err != nil {
		return "", nil, err
	}
	return size, bouquets, nil
}

// AddItem puts quantity of bouquet into cart.
func (w *WorkflowUseCase) AddItem(ctx context.Context, customerID, bouquetID int64, quantity int) (*SessionView, error) {
	if quantity < 1 || quantity > model.MaxQuantity {
		return nil, domainErrors.ErrInvalidQuantity
	}

	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	bouquet, err := w.catalog.Get(ctx, bouquetID)
	if err != nil {
		return nil, err
	}
	return w.addLocked(ctx, session, bouquet, quantity)
}

// AddByNumber resolves display number within the selected size and adds it to cart.
func (w *WorkflowUseCase) AddByNumber(ctx context.Context, customerID int64, number, quantity int) (*SessionView, error) {
	if quantity < 1 || quantity > model.MaxQuantity {
		return nil, domainErrors.ErrInvalidQuantity
	}

	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if session.Size == "" {
		return nil, fmt.Errorf("%w: size is not selected", domainErrors.ErrInvalidState)
	}

	bouquet, err := w.catalog.GetByNumber(ctx, session.Size, number)
	if err != nil {
		return nil, err
	}
	return w.addLocked(ctx, session, bouquet, quantity)
}

func (w *WorkflowUseCase) addLocked(ctx context.Context, session *model.Session, bouquet *model.Bouquet, quantity int) (*SessionView, error) {
	if session.State == model.StateCheckingOut {
		return nil, fmt.Errorf("%w: checkout in progress", domainErrors.ErrInvalidState)
	}
	if !bouquet.InStock {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrItemUnavailable, bouquet.Title)
	}
	if session.Cart.Quantity(bouquet.ID)+quantity > model.MaxQuantity {
		return nil, fmt.Errorf("%w: at most %d of %s", domainErrors.ErrInvalidQuantity, model.MaxQuantity, bouquet.Title)
	}

	session.Cart.Add(bouquet.ID, quantity)
	session.State = model.StateCartNonEmpty
	if err := w.save(ctx, session); err != nil {
		return nil, err
	}
	return w.view(ctx, session)
}

// RemoveItem drops bouquet line from cart.
func (w *WorkflowUseCase) RemoveItem(ctx context.Context, customerID, bouquetID int64) (*SessionView, error) {
	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !session.Cart.Remove(bouquetID) {
		return nil, domainErrors.ErrNotFound
	}
	if session.State == model.StateCheckingOut {
		leaveCheckout(session)
	}
	if session.Cart.Empty() {
		session.State = model.StateSelecting
	}
	if err := w.save(ctx, session); err != nil {
		return nil, err
	}
	return w.view(ctx, session)
}

// Checkout starts collecting delivery details.
func (w *WorkflowUseCase) Checkout(ctx context.Context, customerID int64) (*SessionView, error) {
	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if session.Cart.Empty() {
		return nil, domainErrors.ErrEmptyCart
	}
	if session.State != model.StateCheckingOut {
		session.State = model.StateCheckingOut
		session.Delivery = model.Delivery{}
		if err := w.save(ctx, session); err != nil {
			return nil, err
		}
	}
	return w.view(ctx, session)
}

// SetAddress stores delivery address of checkout in progress.
func (w *WorkflowUseCase) SetAddress(ctx context.Context, customerID int64, raw string) (*SessionView, error) {
	return w.updateDelivery(ctx, customerID, func(d *model.Delivery) error {
		addr, ok := NormalizeAddress(raw)
		if !ok {
			return domainErrors.ErrInvalidAddress
		}
		d.Address = addr
		return nil
	})
}

// SetDeliveryTime stores requested delivery time of checkout in progress.
func (w *WorkflowUseCase) SetDeliveryTime(ctx context.Context, customerID int64, raw string) (*SessionView, error) {
	return w.updateDelivery(ctx, customerID, func(d *model.Delivery) error {
		value, ok := NormalizeDeliveryTime(raw)
		if !ok {
			return domainErrors.ErrInvalidDeliveryTime
		}
		d.Time = value
		return nil
	})
}

func (w *WorkflowUseCase) updateDelivery(ctx context.Context, customerID int64, apply func(*model.Delivery) error) (*SessionView, error) {
	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if session.State != model.StateCheckingOut {
		return nil, fmt.Errorf("%w: checkout is not started", domainErrors.ErrInvalidState)
	}
	if err := apply(&session.Delivery); err != nil {
		return nil, err
	}
	if err := w.save(ctx, session); err != nil {
		return nil, err
	}
	return w.view(ctx, session)
}

// Confirm turns checkout into an order. Prices are captured from the catalog at this moment.
// When payment initiation fails the created order is returned together with the error.
func (w *WorkflowUseCase) Confirm(ctx context.Context, customerID int64) (*model.Order, error) {
	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if session.State != model.StateCheckingOut {
		return nil, fmt.Errorf("%w: checkout is not started", domainErrors.ErrInvalidState)
	}
	if session.Cart.Empty() {
		return nil, domainErrors.ErrEmptyCart
	}
	if !session.Delivery.Complete() {
		return nil, fmt.Errorf("%w: delivery details are incomplete", domainErrors.ErrInvalidState)
	}

	items := make([]model.LineItem, 0, len(session.Cart.Items))
	for _, item := range session.Cart.Items {
		bouquet, err := w.catalog.Get(ctx, item.BouquetID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: bouquet %d", domainErrors.ErrItemUnavailable, item.BouquetID)
			}
			return nil, err
		}
		if !bouquet.InStock {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrItemUnavailable, bouquet.Title)
		}
		items = append(items, model.LineItem{
			BouquetID: bouquet.ID,
			Title:     bouquet.Title,
			Quantity:  item.Quantity,
			UnitPrice: bouquet.Price,
		})
	}

	order, err := w.orders.Create(ctx, model.Order{
		CustomerID:   customerID,
		Items:        items,
		Address:      session.Delivery.Address,
		DeliveryTime: session.Delivery.Time,
	})
	if err != nil {
		return nil, err
	}
	w.metrics.OrderCreated()
	w.logger.Info("order created",
		slog.Int64("order_id", order.ID),
		slog.Int64("customer_id", customerID),
		slog.Int64("total", order.Total),
		slog.Int("items", len(order.Items)))

	if err := w.sessions.Delete(ctx, customerID); err != nil {
		w.logger.Error("discard completed session", slog.Int64("customer_id", customerID), slog.String("error", err.Error()))
	}

	payErr := w.payments.Initiate(ctx, order)
	w.scheduleNotification(ctx, *order)
	if payErr != nil {
		return order, payErr
	}
	return order, nil
}

// Cancel discards session of customer without creating an order.
func (w *WorkflowUseCase) Cancel(ctx context.Context, customerID int64) error {
	defer w.lock(customerID)()

	if err := w.sessions.Delete(ctx, customerID); err != nil {
		return fmt.Errorf("discard session: %w", err)
	}
	return nil
}

// Snapshot returns current session view.
func (w *WorkflowUseCase) Snapshot(ctx context.Context, customerID int64) (*SessionView, error) {
	defer w.lock(customerID)()

	session, err := w.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return w.view(ctx, session)
}

// Wait blocks until scheduled notifications complete.
func (w *WorkflowUseCase) Wait() {
	w.pending.Wait()
}

func (w *WorkflowUseCase) scheduleNotification(ctx context.Context, order model.Order) {
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()

		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.notifyTimeout)
		defer cancel()

		report := w.notifier.OrderCreated(notifyCtx, &order)
		w.logger.Info("order announced",
			slog.Int64("order_id", order.ID),
			slog.Int("delivered", report.Delivered),
			slog.Int("failed", report.Failed))
	}()
}

func (w *WorkflowUseCase) view(ctx context.Context, session *model.Session) (*SessionView, error) {
	v := &SessionView{
		CustomerID: session.CustomerID,
		State:      session.State,
		Size:       session.Size,
		Delivery:   session.Delivery,
	}
	for _, item := range session.Cart.Items {
		bouquet, err := w.catalog.Get(ctx, item.BouquetID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		line := CartLine{Bouquet: *bouquet, Quantity: item.Quantity}
		v.Lines = append(v.Lines, line)
		v.Total += line.Subtotal()
	}
	return v, nil
}
