package pricing

import "errors"

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrUnknownSelection indicates a selection referencing an option or
	// attribute value the product does not declare.
	ErrUnknownSelection = errors.New("unknown option or attribute selection")
)
