package orders

import "errors"

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalid           = errors.New("invalid order request")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrUnknownMeal       = errors.New("unknown meal")
	ErrInvalidTransition = errors.New("invalid status transition")
)
