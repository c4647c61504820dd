package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vendora/internal/domain"
	"vendora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openOrder puts a 10000-cent digital order with a 4000-cent wallet portion on
// the books, leaving a 6000-cent invoice awaiting payment.
func openOrder(t *testing.T, e *env) (*models.Order, *models.Invoice) {
	t.Helper()
	u := e.createUser(t, "payer@example.com")
	p := e.createProduct(t, "EBOOK-W", domain.ProductDigital, 10000, 5)
	e.creditWallet(t, u.ID, 4000)
	e.addToCart(t, u.ID, p.ID, 1)
	order, invoice, err := e.orderSvc.Checkout(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6000), invoice.RequiredCents)
	return order, invoice
}

func webhookBody(t *testing.T, invoiceNumber, amount, txHash string) []byte {
	t.Helper()
	body, err := json.Marshal(WebhookPayload{
		InvoiceNumber:   invoiceNumber,
		Amount:          amount,
		Currency:        "USD",
		TransactionHash: txHash,
		Confirmations:   3,
	})
	require.NoError(t, err)
	return body
}

func deliver(t *testing.T, e *env, invoiceNumber, amount, txHash string) Outcome {
	t.Helper()
	body := webhookBody(t, invoiceNumber, amount, txHash)
	outcome, _ := e.webhook.Process(context.Background(), body, signPayload(body))
	return outcome
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	e := newEnv(t)
	_, invoice := openOrder(t, e)
	body := webhookBody(t, invoice.InvoiceNumber, "60.00", "tx-sig-1")

	outcome, err := e.webhook.Process(context.Background(), body, "deadbeef")
	assert.Equal(t, OutcomeBadSignature, outcome)
	require.ErrorIs(t, err, domain.ErrSignatureInvalid)

	outcome, _ = e.webhook.Process(context.Background(), body, "")
	assert.Equal(t, OutcomeBadSignature, outcome)
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	e := newEnv(t)
	body := []byte(`{"invoice_number":"INV-2026-ABCDEF"`)
	outcome, _ := e.webhook.Process(context.Background(), body, signPayload(body))
	assert.Equal(t, OutcomeBadPayload, outcome)

	// Negative and over-precise amounts are malformed, not underpayments.
	body = webhookBody(t, "INV-2026-ABCDEF", "-5.00", "tx-neg")
	outcome, _ = e.webhook.Process(context.Background(), body, signPayload(body))
	assert.Equal(t, OutcomeBadPayload, outcome)

	body = webhookBody(t, "INV-2026-ABCDEF", "1.005", "tx-frac")
	outcome, _ = e.webhook.Process(context.Background(), body, signPayload(body))
	assert.Equal(t, OutcomeBadPayload, outcome)
}

func TestWebhookUnknownInvoice(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, OutcomeInvoiceNotFound, deliver(t, e, "INV-2026-NOSUCH", "60.00", "tx-miss"))
}

func TestWebhookFullPaymentSettles(t *testing.T) {
	e := newEnv(t)
	order, invoice := openOrder(t, e)

	assert.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "60.00", "tx-full-1"))

	got, err := e.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)

	recorded, err := e.transactions.GetByHash("tx-full-1")
	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.Equal(t, int64(6000), recorded.AmountCents)
	assert.False(t, recorded.Underpayment)
	assert.False(t, recorded.LatePayment)

	inv, err := e.invoices.GetByNumber(invoice.InvoiceNumber, true)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceInactive, inv.State)
}

func TestWebhookDuplicateDeliveryIsIdempotent(t *testing.T) {
	e := newEnv(t)
	order, invoice := openOrder(t, e)
	userID := order.UserID

	assert.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "60.00", "tx-dup"))
	balanceAfterFirst := e.walletBalance(t, userID)

	for i := 0; i < 3; i++ {
		assert.Equal(t, OutcomeDuplicate, deliver(t, e, invoice.InvoiceNumber, "60.00", "tx-dup"))
	}
	assert.Equal(t, balanceAfterFirst, e.walletBalance(t, userID))

	list, err := e.transactions.ListByOrder(order.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWebhookShortWithinToleranceSettles(t *testing.T) {
	e := newEnv(t)
	order, invoice := openOrder(t, e)

	// 59.70 against 60.00 is 0.5% short, inside the 2% band.
	assert.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "59.70", "tx-tol"))

	got, err := e.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
	assert.Zero(t, got.RetryCount)
}

func TestWebhookOverpaymentCreditsExcess(t *testing.T) {
	e := newEnv(t)
	order, invoice := openOrder(t, e)

	assert.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "65.00", "tx-over"))

	got, err := e.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
	assert.Equal(t, int64(500), e.walletBalance(t, order.UserID))

	recorded, err := e.transactions.GetByHash("tx-over")
	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.True(t, recorded.Overpayment)
}

func TestWebhookFirstUnderpaymentOpensRetry(t *testing.T) {
	e := newEnv(t)
	order, invoice := openOrder(t, e)

	assert.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "30.00", "tx-short-1"))

	got, err := e.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPendingPaymentPartial, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.True(t, got.ExpiresAt.After(time.Now().Add(25*time.Minute)), "deadline should be extended")

	// Original stays active alongside the child carrying the shortfall.
	history, err := e.invoices.History(order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	child := history[1]
	assert.Equal(t, int64(3000), child.RequiredCents)
	assert.Equal(t, domain.InvoiceActive, child.State)
	require.NotNil(t, child.ParentInvoiceID)
	assert.Equal(t, invoice.ID, *child.ParentInvoiceID)
	orig, err := e.invoices.GetByNumber(invoice.InvoiceNumber, true)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceActive, orig.State)
}

func TestWebhookSecondUnderpaymentCancelsOrder(t *testing.T) {
	e := newEnv(t)
	order, invoice := openOrder(t, e)

	require.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "30.00", "tx-short-a"))
	child, err := e.invoices.ActiveByOrder(order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3000), child.RequiredCents)

	require.Equal(t, OutcomeApplied, deliver(t, e, child.InvoiceNumber, "10.00", "tx-short-b"))

	got, err := e.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelledBySystem, got.Status)

	// Everything received (3000 + 1000) plus the 4000-cent wallet portion comes
	// back as credit; a system fault never strikes the user.
	assert.Equal(t, int64(8000), e.walletBalance(t, order.UserID))
	strikes, err := e.strikes.CountByUser(order.UserID)
	require.NoError(t, err)
	assert.Zero(t, strikes)

	for _, inv := range []string{invoice.InvoiceNumber, child.InvoiceNumber} {
		frozen, err := e.invoices.GetByNumber(inv, true)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceInactive, frozen.State)
	}
}

func TestWebhookPaymentToInactiveInvoiceNotFound(t *testing.T) {
	e := newEnv(t)
	order, invoice := openOrder(t, e)

	require.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "60.00", "tx-done"))
	got, err := e.orders.GetByID(order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderPaid, got.Status)

	// A different transaction against the now-inactive invoice must not resurrect it.
	assert.Equal(t, OutcomeInvoiceNotFound, deliver(t, e, invoice.InvoiceNumber, "60.00", "tx-late-extra"))
}

func TestWebhookLatePaymentBeforeSweepIsHonored(t *testing.T) {
	e := newEnv(t)
	order, invoice := openOrder(t, e)
	e.backdateOrder(t, order.ID, time.Hour, -5*time.Minute)

	// Deadline passed but the sweeper has not acted; completing the sale wins.
	assert.Equal(t, OutcomeApplied, deliver(t, e, invoice.InvoiceNumber, "60.00", "tx-late"))

	got, err := e.orders.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)

	recorded, err := e.transactions.GetByHash("tx-late")
	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.True(t, recorded.LatePayment)
	assert.Zero(t, recorded.PenaltyCents)

	strikes, err := e.strikes.CountByUser(order.UserID)
	require.NoError(t, err)
	assert.Zero(t, strikes)
}
