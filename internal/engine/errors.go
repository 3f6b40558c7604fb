package engine

import "errors"

// Caller-recoverable validation failures; gateway handlers map these to
// 4xx responses.
var (
	ErrInvalidOrder      = errors.New("invalid order")
	ErrOrderLocked       = errors.New("order is locked")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidPricing    = errors.New("invalid pricing")
	ErrInvalidDiscount   = errors.New("invalid discount")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTable      = errors.New("invalid table")
)

// ErrTotalsInvariant signals persisted totals that disagree with their
// recomputation. This is a programming error, not user input; any mutation
// observing it must roll back.
var ErrTotalsInvariant = errors.New("order totals invariant violated")
