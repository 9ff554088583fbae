package test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/flowershop/internal/domain/errors"
	"github.com/polkiloo/flowershop/internal/domain/model"
)

// CatalogRepositoryStub stores bouquets in-memory for tests.
type CatalogRepositoryStub struct {
	mu       sync.Mutex
	bouquets map[int64]model.Bouquet
	next     int64

	GetFn    func(context.Context, int64) (*model.Bouquet, error)
	CreateFn func(context.Context, model.Bouquet) (*model.Bouquet, error)
	Err      error
}

// NewCatalogRepositoryStub constructs stub catalog seeded with bouquets.
func NewCatalogRepositoryStub(bouquets ...model.Bouquet) *CatalogRepositoryStub {
	s := &CatalogRepositoryStub{bouquets: make(map[int64]model.Bouquet), next: 1}
	for _, b := range bouquets {
		if b.ID == 0 {
			b.ID = s.next
		}
		if b.ID >= s.next {
			s.next = b.ID + 1
		}
		s.bouquets[b.ID] = b
	}
	return s
}

func (s *CatalogRepositoryStub) sorted(filter func(model.Bouquet) bool) []model.Bouquet {
	var result []model.Bouquet
	for _, b := range s.bouquets {
		if filter(b) {
			result = append(result, b)
		}
	}
	rank := map[model.Size]int{model.SizeSmall: 0, model.SizeMedium: 1, model.SizeBig: 2}
	sort.Slice(result, func(i, j int) bool {
		if rank[result[i].Size] != rank[result[j].Size] {
			return rank[result[i].Size] < rank[result[j].Size]
		}
		return result[i].Number < result[j].Number
	})
	return result
}

// ListAvailable returns in-stock bouquets ordered by size and number.
func (s *CatalogRepositoryStub) ListAvailable(context.Context) ([]model.Bouquet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.sorted(func(b model.Bouquet) bool { return b.InStock }), nil
}

// ListAvailableBySize returns in-stock bouquets of size.
func (s *CatalogRepositoryStub) ListAvailableBySize(_ context.Context, size model.Size) ([]model.Bouquet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.sorted(func(b model.Bouquet) bool { return b.InStock && b.Size == size }), nil
}

// List returns all bouquets.
func (s *CatalogRepositoryStub) List(context.Context) ([]model.Bouquet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.sorted(func(model.Bouquet) bool { return true }), nil
}

// Get fetches bouquet by identifier or returns not found.
func (s *CatalogRepositoryStub) Get(ctx context.Context, id int64) (*model.Bouquet, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	b, ok := s.bouquets[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return &b, nil
}

// GetByNumber fetches bouquet by size and display number.
func (s *CatalogRepositoryStub) GetByNumber(_ context.Context, size model.Size, number int) (*model.Bouquet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, b := range s.bouquets {
		if b.Size == size && b.Number == number {
			match := b
			return &match, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// Create registers bouquet unless size/number pair is taken.
func (s *CatalogRepositoryStub) Create(ctx context.Context, bouquet model.Bouquet) (*model.Bouquet, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, bouquet)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, b := range s.bouquets {
		if b.Size == bouquet.Size && b.Number == bouquet.Number {
			return nil, domainErrors.ErrAlreadyExists
		}
	}
	bouquet.ID = s.next
	s.next++
	s.bouquets[bouquet.ID] = bouquet
	return &bouquet, nil
}

// SetInStock updates availability flag.
func (s *CatalogRepositoryStub) SetInStock(_ context.Context, id int64, inStock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	b, ok := s.bouquets[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	b.InStock = inStock
	s.bouquets[id] = b
	return nil
}

// SetImage updates photo reference.
func (s *CatalogRepositoryStub) SetImage(_ context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	b, ok := s.bouquets[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	b.ImageRef = ref
	s.bouquets[id] = b
	return nil
}

// OrderUpdateCall captures arguments of UpdateStatus invocation.
type OrderUpdateCall struct {
	OrderID int64
	Status  model.OrderStatus
	Reason  string
}

// OrderRepositoryStub keeps orders in-memory and allows tests to customize behaviour.
type OrderRepositoryStub struct {
	mu      sync.Mutex
	orders  map[int64]*model.Order
	history map[int64][]model.StatusChange
	next    int64

	CreateFn              func(context.Context, model.Order) (*model.Order, error)
	UpdateStatusFn        func(context.Context, int64, model.OrderStatus, string) error
	ListAwaitingPaymentFn func(context.Context, time.Time, int) ([]model.Order, error)
	Now                   func() time.Time

	UpdateCalls []OrderUpdateCall
}

// NewOrderRepositoryStub constructs empty stub.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{
		orders:  make(map[int64]*model.Order),
		history: make(map[int64][]model.StatusChange),
		next:    1,
		Now:     time.Now,
	}
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.LineItem(nil), o.Items...)
	return &cp
}

// Create assigns identifier and stores order with status created.
func (s *OrderRepositoryStub) Create(ctx context.Context, order model.Order) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	order.ID = s.next
	s.next++
	order.Status = model.OrderStatusCreated
	order.Total = model.CalculateTotal(order.Items)
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = cloneOrder(&order)
	s.history[order.ID] = []model.StatusChange{{OrderID: order.ID, To: model.OrderStatusCreated, Reason: "created", At: now}}
	return &order, nil
}

// Put stores order as is, for arranging fixtures.
func (s *OrderRepositoryStub) Put(order model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID >= s.next {
		s.next = order.ID + 1
	}
	s.orders[order.ID] = cloneOrder(&order)
}

// Get returns stored order or not found.
func (s *OrderRepositoryStub) Get(_ context.Context, id int64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return cloneOrder(o), nil
}

// ListByCustomer returns customer orders by creation time ascending.
func (s *OrderRepositoryStub) ListByCustomer(_ context.Context, customerID int64) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			result = append(result, *cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateStatus records invocation and applies allowed transitions.
func (s *OrderRepositoryStub) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus, reason string) error {
	s.mu.Lock()
	s.UpdateCalls = append(s.UpdateCalls, OrderUpdateCall{OrderID: id, Status: status, Reason: reason})
	s.mu.Unlock()

	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, id, status, reason)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if !o.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, o.Status, status)
	}
	from := o.Status
	o.Status = status
	o.UpdatedAt = s.Now()
	s.history[id] = append(s.history[id], model.StatusChange{OrderID: id, From: from, To: status, Reason: reason, At: o.UpdatedAt})
	return nil
}

// Updates returns copy of recorded UpdateStatus calls.
func (s *OrderRepositoryStub) Updates() []OrderUpdateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OrderUpdateCall(nil), s.UpdateCalls...)
}

// SetPaymentRef stores payment reference.
func (s *OrderRepositoryStub) SetPaymentRef(_ context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	o.PaymentRef = ref
	return nil
}

// ListAwaitingPayment returns created orders with payment reference older than createdBefore.
func (s *OrderRepositoryStub) ListAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	if s.ListAwaitingPaymentFn != nil {
		return s.ListAwaitingPaymentFn(ctx, createdBefore, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Order
	for _, o := range s.orders {
		if o.Status == model.OrderStatusCreated && o.PaymentRef != "" && o.CreatedAt.Before(createdBefore) {
			result = append(result, *cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// History returns recorded status changes.
func (s *OrderRepositoryStub) History(_ context.Context, id int64) ([]model.StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.history[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return append([]model.StatusChange(nil), h...), nil
}

// Count returns number of stored orders.
func (s *OrderRepositoryStub) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}
