package model

import "time"

// SessionState is a step of the ordering workflow.
type SessionState string

const (
	StateBrowsing     SessionState = "browsing"
	StateSelecting    SessionState = "selecting"
	StateCartNonEmpty SessionState = "cart_non_empty"
	StateCheckingOut  SessionState = "checking_out"
	StateCompleted    SessionState = "completed"
	StateCancelled    SessionState = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Delivery holds checkout details collected from customer.
type Delivery struct {
	Address string `json:"address,omitempty"`
	Time    string `json:"time,omitempty"`
}

// Complete reports whether both address and time are known.
func (d Delivery) Complete() bool {
	return d.Address != "" && d.Time != ""
}

// Session is the ephemeral per-customer ordering state.
type Session struct {
	CustomerID int64        `json:"customer_id"`
	State      SessionState `json:"state"`
	Size       Size         `json:"size,omitempty"`
	Cart       Cart         `json:"cart"`
	Delivery   Delivery     `json:"delivery"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// NewSession starts browsing session for customer.
func NewSession(customerID int64) *Session {
	return &Session{CustomerID: customerID, State: StateBrowsing}
}

// Clone returns deep copy of session.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Cart = s.Cart.Clone()
	return &cp
}
