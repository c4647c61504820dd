package service

import (
	"crypto/rand"
	"fmt"
	"time"

	"vendora/internal/domain"
	"vendora/internal/models"
	"vendora/internal/repository"

	"gorm.io/gorm"
)

// InvoiceLedger owns the invoice Moore automaton. An invoice is ACTIVE until its
// single, permanent deactivation; INACTIVE is absorbing. Exactly one invoice per
// open order is active, except while an underpayment retry keeps the original
// active alongside its child.
type InvoiceLedger struct {
	invoices *repository.InvoiceRepository
}

func NewInvoiceLedger(invoices *repository.InvoiceRepository) *InvoiceLedger {
	return &InvoiceLedger{invoices: invoices}
}

// Open creates an ACTIVE invoice for the order. A nil parentID enforces the
// no-active-invoice precondition; a non-nil parentID is the underpayment-retry
// path, where the original deliberately stays active.
func (l *InvoiceLedger) Open(tx *gorm.DB, order *models.Order, number string, requiredCents int64, address *string, parentID *uint) (*models.Invoice, error) {
	invoices := l.invoices.WithTx(tx)

	if parentID == nil {
		n, err := invoices.CountActiveForOrder(order.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("order %d already has an active invoice", order.ID)
		}
	}
	inv := &models.Invoice{
		OrderID:         order.ID,
		InvoiceNumber:   number,
		PaymentAddress:  address,
		RequiredCents:   requiredCents,
		Currency:        order.Currency,
		ParentInvoiceID: parentID,
		State:           domain.InvoiceActive,
	}
	if err := invoices.Create(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// DeactivateAll freezes every invoice of the order. Safe to call on any
// terminal transition; already-inactive invoices are untouched.
func (l *InvoiceLedger) DeactivateAll(tx *gorm.DB, orderID uint) error {
	return l.invoices.WithTx(tx).DeactivateAllForOrder(orderID)
}

const invoiceNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewInvoiceNumber returns a fresh INV-{year}-{6 alphanumeric} number. It is
// generated before the payment address is requested so the processor can bind
// the address to it; the unique index on invoice_number catches the
// (vanishingly rare, 36^-6) collision at insert time.
func NewInvoiceNumber(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = invoiceNumberAlphabet[int(buf[i])%len(invoiceNumberAlphabet)]
	}
	return fmt.Sprintf("INV-%d-%s", now.Year(), string(buf)), nil
}
