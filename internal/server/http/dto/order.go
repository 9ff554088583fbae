package dto

import "time"

// LineItemResponse describes ordered bouquet.
type LineItemResponse struct {
	BouquetID int64  `json:"bouquet_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// StatusChangeResponse describes order audit record.
type StatusChangeResponse struct {
	From   string    `json:"from,omitempty"`
	To     string    `json:"to"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// OrderResponse describes order with optional status history.
type OrderResponse struct {
	ID           int64                  `json:"id"`
	CustomerID   int64                  `json:"customer_id"`
	Status       string                 `json:"status"`
	Total        string                 `json:"total"`
	Address      string                 `json:"address"`
	DeliveryTime string                 `json:"delivery_time"`
	Items        []LineItemResponse     `json:"items"`
	History      []StatusChangeResponse `json:"history,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// StatusRequest carries administrator decision about order.
type StatusRequest struct {
	Status  string `json:"status"`
	AdminID int64  `json:"admin_id"`
}
