package test

import (
	"context"
	"sync"

	"github.com/polkiloo/flowershop/internal/domain/model"
)

// PaymentInitiatorStub records initiated orders.
type PaymentInitiatorStub struct {
	mu         sync.Mutex
	InitiateFn func(context.Context, *model.Order) error
	Initiated  []int64
}

// Initiate records order and delegates to override when provided.
func (s *PaymentInitiatorStub) Initiate(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	s.Initiated = append(s.Initiated, order.ID)
	s.mu.Unlock()
	if s.InitiateFn != nil {
		return s.InitiateFn(ctx, order)
	}
	return nil
}

// Calls returns copy of initiated order identifiers.
func (s *PaymentInitiatorStub) Calls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.Initiated...)
}

// OrderNotifierStub records announced orders.
type OrderNotifierStub struct {
	mu     sync.Mutex
	Orders []model.Order
	Report model.NotificationReport
}

// OrderCreated stores order and returns configured report.
func (s *OrderNotifierStub) OrderCreated(_ context.Context, order *model.Order) model.NotificationReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Orders = append(s.Orders, *order)
	return s.Report
}

// Announced returns copy of announced orders.
func (s *OrderNotifierStub) Announced() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Order(nil), s.Orders...)
}

// SentText is a message captured by TextSenderStub.
type SentText struct {
	ChatID int64
	Text   string
}

// TextSenderStub captures plain text messages and can fail for selected chats.
type TextSenderStub struct {
	mu      sync.Mutex
	Sent    []SentText
	FailFor map[int64]error
}

// SendText records message or returns configured failure.
func (s *TextSenderStub) SendText(_ context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.FailFor[chatID]; ok {
		return err
	}
	s.Sent = append(s.Sent, SentText{ChatID: chatID, Text: text})
	return nil
}

// Messages returns copy of sent messages.
func (s *TextSenderStub) Messages() []SentText {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentText(nil), s.Sent...)
}
