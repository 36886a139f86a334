package pricing

import "errors"

var (
	// ErrInvalidConfiguration is returned for pricing rules or inputs that would produce nonsensical prices
	ErrInvalidConfiguration = errors.New("pricing: invalid configuration")
	// ErrNegativeCost is returned when a cost price below zero reaches the calculator
	ErrNegativeCost = errors.New("pricing: negative cost price")
)
