package payment

import (
	"context"
	"time"
)

// AddressRequest asks the processor for a one-time payment address bound to an
// invoice. Amount is a decimal string in Currency units, as the processor expects.
type AddressRequest struct {
	InvoiceNumber  string
	Amount         string
	Currency       string
	CallbackURL    string
	IdempotencyKey string
	ExpiresIn      time.Duration
}

type AddressResponse struct {
	Address   string
	Reference string
	ExpiresAt time.Time
}

// Provider is the external payment processor. Calls are slow network I/O and
// must never happen inside a database transaction.
type Provider interface {
	CreateAddress(ctx context.Context, req AddressRequest) (*AddressResponse, error)
}
