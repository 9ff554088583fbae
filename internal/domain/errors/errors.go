package errors

import "errors"

var (
	ErrAlreadyExists        = errors.New("already exists")
	ErrNotFound             = errors.New("not found")
	ErrItemUnavailable      = errors.New("item unavailable")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrPaymentFailure       = errors.New("payment failure")
	ErrRefundRequired       = errors.New("payment must be refunded")
	ErrNotificationDelivery = errors.New("notification delivery failure")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidSize          = errors.New("invalid bouquet size")
	ErrInvalidState         = errors.New("operation not allowed in current state")
	ErrInvalidAddress       = errors.New("invalid delivery address")
	ErrInvalidDeliveryTime  = errors.New("invalid delivery time")
	ErrInvalidBouquet       = errors.New("invalid bouquet")
)

// IsUserError reports whether err is caused by customer input and can be shown back.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrItemUnavailable,
		ErrEmptyCart,
		ErrInvalidQuantity,
		ErrInvalidSize,
		ErrInvalidState,
		ErrInvalidAddress,
		ErrInvalidDeliveryTime,
		ErrInvalidBouquet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
