package service

import (
	"context"
	"testing"
	"time"

	"vendora/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiresOverdueOrders(t *testing.T) {
	e := newEnv(t)
	sweeper := NewTimeoutSweeper(e.orders, e.orderSvc, time.Minute)

	overdue := e.createUser(t, "overdue@example.com")
	fresh := e.createUser(t, "fresh@example.com")
	p := e.createProduct(t, "EBOOK-S", domain.ProductDigital, 1000, 10)

	e.addToCart(t, overdue.ID, p.ID, 1)
	overdueOrder, _, err := e.orderSvc.Checkout(context.Background(), overdue.ID)
	require.NoError(t, err)
	e.backdateOrder(t, overdueOrder.ID, time.Hour, -time.Minute)

	e.addToCart(t, fresh.ID, p.ID, 1)
	freshOrder, _, err := e.orderSvc.Checkout(context.Background(), fresh.ID)
	require.NoError(t, err)

	sweeper.SweepOnce(context.Background(), time.Now())

	got, err := e.orders.GetByID(overdueOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderTimeout, got.Status)

	got, err = e.orders.GetByID(freshOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPendingPayment, got.Status)
}

func TestSweepSkipsOrdersClosedSinceQuery(t *testing.T) {
	e := newEnv(t)
	sweeper := NewTimeoutSweeper(e.orders, e.orderSvc, time.Minute)

	u := e.createUser(t, "racer@example.com")
	p := e.createProduct(t, "EBOOK-R", domain.ProductDigital, 1000, 10)
	e.addToCart(t, u.ID, p.ID, 1)
	order, invoice, err := e.orderSvc.Checkout(context.Background(), u.ID)
	require.NoError(t, err)
	e.backdateOrder(t, order.ID, time.Hour, -time.Minute)

	// Payment lands between the sweep query and the expiry lock.
	assert.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "10.00", "tx-race"))

	sweeper.SweepOnce(context.Background(), time.Now())

	got, err := e.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
}

func TestSweeperStartStop(t *testing.T) {
	e := newEnv(t)
	sweeper := NewTimeoutSweeper(e.orders, e.orderSvc, 10*time.Millisecond)
	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
}
