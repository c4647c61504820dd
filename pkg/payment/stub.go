package payment

import (
	"context"
	"fmt"
	"time"
)

// StubProvider generates fake addresses for development and tests.
type StubProvider struct{}

func (s *StubProvider) CreateAddress(ctx context.Context, req AddressRequest) (*AddressResponse, error) {
	return &AddressResponse{
		Address:   fmt.Sprintf("stub_%s_%d", req.InvoiceNumber, time.Now().UnixNano()),
		Reference: "stub_" + req.IdempotencyKey,
		ExpiresAt: time.Now().Add(req.ExpiresIn),
	}, nil
}
