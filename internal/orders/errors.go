package orders

import "errors"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductInactive    = errors.New("product is not active")
	ErrArtworkRequired    = errors.New("artwork is required unless a designer is requested")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrUnknownPaymentCode = errors.New("unknown payment status")
)
