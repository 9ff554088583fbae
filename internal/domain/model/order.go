package model

import "time"

// OrderStatus describes order lifecycle.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether status accepts no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// CanTransitionTo reports whether order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusCreated && (next == OrderStatusPaid || next == OrderStatusCancelled)
}

// ParseOrderStatus validates raw status value.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(raw) {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusCancelled:
		return OrderStatus(raw), true
	}
	return "", false
}

// LineItem is an ordered bouquet with price captured at checkout.
type LineItem struct {
	BouquetID int64
	Title     string
	Quantity  int
	UnitPrice int64
}

// Subtotal returns line amount in minor units.
func (l LineItem) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Order is a persisted purchase record.
type Order struct {
	ID           int64
	CustomerID   int64
	Items        []LineItem
	Total        int64
	Status       OrderStatus
	Address      string
	DeliveryTime string
	PaymentRef   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CalculateTotal sums line items.
func CalculateTotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// StatusChange is an audit record of order status transition.
type StatusChange struct {
	OrderID int64
	From    OrderStatus
	To      OrderStatus
	Reason  string
	At      time.Time
}
