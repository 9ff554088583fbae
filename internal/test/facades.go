package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/flowershop/internal/domain/model"
)

// ExpiryFacadeStub mimics worker interactions with the payment facade.
type ExpiryFacadeStub struct {
	Orders    [][]model.Order
	OrdersFn  func(context.Context, time.Time, int) ([]model.Order, error)
	ExpireFn  func(context.Context, int64) error
	Expired   []int64
	Cutoffs   []time.Time
	mu        sync.Mutex
	callCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *ExpiryFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *ExpiryFacadeStub) Unlock() { s.mu.Unlock() }

// AwaitingPayment returns batches from configured queue.
func (s *ExpiryFacadeStub) AwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	s.mu.Lock()
	s.Cutoffs = append(s.Cutoffs, createdBefore)
	s.mu.Unlock()
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, createdBefore, limit)
	}
	call := atomic.AddInt32(&s.callCount, 1)
	if int(call) <= len(s.Orders) {
		return s.Orders[call-1], nil
	}
	return nil, nil
}

// ExpirePayment records expired order.
func (s *ExpiryFacadeStub) ExpirePayment(ctx context.Context, orderID int64) error {
	if s.ExpireFn != nil {
		if err := s.ExpireFn(ctx, orderID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Expired = append(s.Expired, orderID)
	return nil
}

// ExpiredIDs returns copy of expired order identifiers.
func (s *ExpiryFacadeStub) ExpiredIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.Expired...)
}

// StatusCall captures administrator decision passed to the facade.
type StatusCall struct {
	OrderID int64
	Status  model.OrderStatus
	AdminID int64
}

// HTTPFacadeStub mimics facade used by HTTP handlers.
type HTTPFacadeStub struct {
	CatalogFn   func(context.Context) ([]model.Bouquet, error)
	OrderFn     func(context.Context, int64) (*model.Order, error)
	CustomerFn  func(context.Context, int64) ([]model.Order, error)
	HistoryFn   func(context.Context, int64) ([]model.StatusChange, error)
	SetStatusFn func(context.Context, int64, model.OrderStatus, int64) error
	HealthErr   error

	mu    sync.Mutex
	calls []StatusCall
}

func (s *HTTPFacadeStub) Catalog(ctx context.Context) ([]model.Bouquet, error) {
	if s.CatalogFn != nil {
		return s.CatalogFn(ctx)
	}
	return nil, nil
}

func (s *HTTPFacadeStub) Order(ctx context.Context, id int64) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, id)
	}
	return &model.Order{ID: id, Status: model.OrderStatusCreated}, nil
}

func (s *HTTPFacadeStub) CustomerOrders(ctx context.Context, customerID int64) ([]model.Order, error) {
	if s.CustomerFn != nil {
		return s.CustomerFn(ctx, customerID)
	}
	return nil, nil
}

func (s *HTTPFacadeStub) OrderHistory(ctx context.Context, id int64) ([]model.StatusChange, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, id)
	}
	return nil, nil
}

func (s *HTTPFacadeStub) SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus, adminID int64) error {
	s.mu.Lock()
	s.calls = append(s.calls, StatusCall{OrderID: orderID, Status: status, AdminID: adminID})
	s.mu.Unlock()
	if s.SetStatusFn != nil {
		return s.SetStatusFn(ctx, orderID, status, adminID)
	}
	return nil
}

func (s *HTTPFacadeStub) HealthCheck(context.Context) error {
	return s.HealthErr
}

// StatusCalls returns copy of recorded status changes.
func (s *HTTPFacadeStub) StatusCalls() []StatusCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatusCall(nil), s.calls...)
}
