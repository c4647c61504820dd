package domain

import (
	"errors"
	"fmt"
)

// Closed set of engine errors. Repositories and ledgers return these unchanged;
// only the order controller and HTTP handlers translate them.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrAlreadyFinalized     = errors.New("stock already finalized for order")
	ErrDuplicateTransaction = errors.New("transaction hash already recorded")
	ErrSignatureInvalid     = errors.New("webhook signature verification failed")
	ErrOpenOrderExists      = errors.New("user already has an open order")
	ErrCartEmpty            = errors.New("cart is empty")
	ErrUserBanned           = errors.New("user is banned")
	ErrInsufficientBalance  = errors.New("insufficient wallet balance")
)

// InsufficientStockError is user-correctable: reduce the quantity and retry.
type InsufficientStockError struct {
	SKU       string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested", e.SKU, e.Available, e.Requested)
}

// InvalidOrderStateError means the caller lost an optimistic-concurrency race or
// acted on a stale read. Re-fetch the order and retry.
type InvalidOrderStateError struct {
	Expected []string
	Actual   string
}

func (e *InvalidOrderStateError) Error() string {
	return fmt.Sprintf("invalid order state: expected one of %v, actual %s", e.Expected, e.Actual)
}
